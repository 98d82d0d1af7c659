package main

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/distr1/buildcore/depscan"
	"github.com/distr1/buildcore/graph"
	"github.com/distr1/buildcore/oracle"
	"golang.org/x/xerrors"
)

// artifactKind distinguishes an on-disk source file (whose timestamp comes
// from the filesystem) from a derived object or binary (whose timestamp is
// tracked in a tsdict.Dict), the way a real build graph mixes leaf inputs
// with the outputs it rebuilds.
type artifactKind int

const (
	kindSource artifactKind = iota
	kindDerived
)

// rootTarget is the synthetic vertex representing "link everything
// together", the way batch.go's graph had one node per package with a
// virtual root implied by "build everything in pkgsDir".
const rootTarget = "all"

// loadCProject scans dir for *.c files, runs depscan against each using
// compiler, and assembles a graph.Graph rooted at rootTarget: rootTarget
// depends on every compilation unit's object file, and each object file
// depends on the sources depscan reports for it.
func loadCProject(ctx context.Context, dir, compiler string) (*graph.Graph[string, artifactKind], error) {
	g := graph.New[string, artifactKind]()
	if err := g.AddVertex(rootTarget, kindDerived); err != nil {
		return nil, err
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.c"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	if len(matches) == 0 {
		return nil, xerrors.Errorf("loadCProject: no .c files found in %s", dir)
	}

	for _, src := range matches {
		product, prereqs, err := depscan.Extract(ctx, compiler, depscan.ModeUser, []string{dir}, src)
		if err != nil {
			return nil, xerrors.Errorf("loadCProject: %w", err)
		}
		if !g.Contains(product) {
			if err := g.AddVertex(product, kindDerived); err != nil {
				return nil, err
			}
		}
		if err := g.AddEdge(rootTarget, product); err != nil {
			return nil, err
		}
		for _, p := range prereqs {
			if !g.Contains(p) {
				if err := g.AddVertex(p, kindSource); err != nil {
					return nil, err
				}
			}
			if err := g.AddEdge(product, p); err != nil {
				return nil, err
			}
		}
	}

	if g.IsCyclic() {
		return nil, xerrors.Errorf("loadCProject: dependency graph in %s is cyclic", dir)
	}
	return g, nil
}

// fileOracle returns an oracle.Oracle that reports a source file's mtime
// relative to dir.
func fileOracle(dir string) oracle.Oracle {
	return func(name string) int64 {
		fi, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			return oracle.Missing
		}
		return fi.ModTime().Unix()
	}
}
