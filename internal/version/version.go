/*
Copyright (c) 2026 Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/

// Package version provides build information set at link time.
package version

import "fmt"

var (
	// Version is the release tag, set via -ldflags.
	Version string
	// GitCommit is the abbreviated commit hash, set via -ldflags.
	GitCommit string
)

func Release() string {
	if Version == "" {
		return "dev"
	}
	return Version
}

func Commit() string {
	if GitCommit == "" {
		return "unknown"
	}
	return GitCommit
}

func Banner() string {
	return "  ___  ___  ___   ___  ___   ___  _  __\n" +
		" / __|| _ \\|   \\ | _ \\|_ _| / __|| |/ /\n" +
		"| (_ ||  _/| |) ||  _/ | | | (__ |   < \n" +
		" \\___||_|  |___/ |_|  |___| \\___||_|\\_\\"
}

func Print() {
	fmt.Println(Banner())
	fmt.Println()
	fmt.Printf("Release: %s\n", Release())
	fmt.Printf("Commit:  %s\n", Commit())
}
