// Package version holds build metadata, stamped at link time:
//
//	go build -ldflags "-X github.com/kevinmichaelchen/star-vault/internal/version.Version=v1.2.0 \
//	  -X github.com/kevinmichaelchen/star-vault/internal/version.Commit=$(git rev-parse --short HEAD)"
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version is the release tag of the binary.
var Version = "dev"

// Commit is the Git hash the binary was built from.
var Commit = "<unknown>"

// Date is the build date.
var Date = ""

// String renders the version line printed by the version command.
func String() string {
	version, commit := Version, Commit
	if version == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			version = info.Main.Version
		}
	}

	s := fmt.Sprintf("star-vault %s (%s", version, commit)
	if Date != "" {
		s += ", built " + Date
	}
	return s + fmt.Sprintf(", %s %s/%s)", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
