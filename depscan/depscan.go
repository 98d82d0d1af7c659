// Package depscan extracts prerequisite lists from a C compiler's makefile
// dependency output, the way internal/build's shlibdeps.go shells out to
// ldd(1) and regexp-parses its stdout. Here the tool is a C compiler invoked
// with -M or -MM, and the output format is make's backslash-continued
// dependency line rather than ldd's "=> path" form.
package depscan

import (
	"bytes"
	"context"
	"os/exec"
	"regexp"
	"strings"

	"github.com/distr1/buildcore"
	"golang.org/x/xerrors"
)

// Mode selects which compiler dependency flag to pass.
type Mode int

const (
	// ModeSystem passes -M, which includes system (angle-bracket) headers.
	ModeSystem Mode = iota
	// ModeUser passes -MM, which omits system headers.
	ModeUser
)

func (m Mode) flag() (string, error) {
	switch m {
	case ModeSystem:
		return "-M", nil
	case ModeUser:
		return "-MM", nil
	default:
		return "", xerrors.Errorf("depscan: mode %d: %w", int(m), buildcore.ErrNotFound)
	}
}

// depLineRe matches a "target:" at the start of a makefile dependency
// fragment; everything after the colon, across continuation lines, is a
// whitespace-separated list of prerequisite paths.
var depLineRe = regexp.MustCompile(`^([^:\s][^:]*):(.*)$`)

// Extract invokes compiler with the dependency flag selected by mode, plus
// one -I argument per entry in includeDirs, against source, and parses the
// resulting makefile fragment into the product it names and its
// prerequisites. On nonzero exit, the returned error wraps the compiler's
// captured stderr, matching findShlibDeps's practice of surfacing the
// failing tool's own diagnostic rather than just "exit status 1".
func Extract(ctx context.Context, compiler string, mode Mode, includeDirs []string, source string) (product string, prereqs []string, err error) {
	flag, err := mode.flag()
	if err != nil {
		return "", nil, err
	}

	args := []string{flag}
	for _, dir := range includeDirs {
		args = append(args, "-I"+dir)
	}
	args = append(args, source)

	cmd := exec.CommandContext(ctx, compiler, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", nil, xerrors.Errorf("depscan: %s %s: %v: %s", compiler, strings.Join(args, " "), err, stderr.String())
	}

	return parse(out)
}

// parse reads a single makefile dependency rule, joining backslash
// continuation lines before splitting on whitespace.
func parse(out []byte) (product string, prereqs []string, err error) {
	joined := strings.ReplaceAll(string(out), "\\\n", " ")

	m := depLineRe.FindStringSubmatch(strings.TrimSpace(joined))
	if m == nil {
		return "", nil, xerrors.Errorf("depscan: no dependency rule found in compiler output: %w", buildcore.ErrNotFound)
	}
	product = strings.TrimSpace(m[1])

	for _, f := range strings.Fields(m[2]) {
		if f == product {
			continue
		}
		prereqs = append(prereqs, f)
	}
	return product, prereqs, nil
}
