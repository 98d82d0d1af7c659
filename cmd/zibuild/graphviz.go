package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"gonum.org/v1/gonum/graph/encoding/dot"
)

// cmdGraphviz exercises graph.Graph.ToDirected's gonum interop seam: it
// builds the same dependency graph cmdBuild would and renders it as a
// Graphviz dot file, so the structure a build run would walk can be
// inspected with `dot -Tpng`.
func cmdGraphviz(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("graphviz", flag.ExitOnError)
	var (
		dir      = fset.String("dir", ".", "directory containing the C sources to graph")
		compiler = fset.String("compiler", "cc", "C compiler used for dependency scanning")
	)
	fset.Parse(args)

	g, err := loadCProject(ctx, *dir, *compiler)
	if err != nil {
		return err
	}

	b, err := dot.Marshal(g.ToDirected(), rootTarget, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, string(b))
	return err
}
