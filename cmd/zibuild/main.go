// Command zibuild is an example driver for package graph, package
// workqueue, package depscan and package tsdict: it scans a directory of C
// sources, builds a dependency graph from their #include relationships, and
// drives an incremental rebuild using a pool of worker goroutines, the way
// cmd/distri dispatches to its own verbs.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/distr1/buildcore"
	internaltrace "github.com/distr1/buildcore/internal/trace"
	"golang.org/x/xerrors"
)

var (
	debug     = flag.Bool("debug", false, "format error messages with additional detail")
	tracefile = flag.String("tracefile", "", "path to store a chrome trace event file at (load in chrome://tracing)")
)

type verb struct {
	fn func(ctx context.Context, args []string) error
}

func funcmain() error {
	flag.Parse()

	if *tracefile != "" {
		f, err := os.Create(*tracefile)
		if err != nil {
			return err
		}
		internaltrace.Sink(f)
	}

	verbs := map[string]verb{
		"build":    {cmdBuild},
		"graphviz": {cmdGraphviz},
	}

	args := flag.Args()
	name := "build"
	if len(args) > 0 {
		name, args = args[0], args[1:]
	}

	v, ok := verbs[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", name)
		fmt.Fprintf(os.Stderr, "syntax: zibuild <command> [options]\n")
		os.Exit(2)
	}

	ctx, canc := buildcore.InterruptibleContext()
	defer canc()

	if err := v.fn(ctx, args); err != nil {
		if *debug {
			return xerrors.Errorf("%s: %+v", name, err)
		}
		return xerrors.Errorf("%s: %v", name, err)
	}

	return nil
}

func main() {
	if err := funcmain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
