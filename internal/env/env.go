// Package env captures zibuild's process-wide configuration, read from the
// environment the way DistriRoot anchored every distri subcommand at a
// single checkout directory.
package env

import "os"

// BuildRoot is a root directory read from $ZIBUILD_ROOT, defaulting to the
// current directory. cmd/zibuild's subcommands do not consult it: they take
// the directory to scan, and to keep the timestamp dictionary in, from
// their -dir flag.
var BuildRoot = findBuildRoot()

func findBuildRoot() string {
	if root := os.Getenv("ZIBUILD_ROOT"); root != "" {
		return root
	}
	return "."
}
