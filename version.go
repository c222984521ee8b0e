package main

import (
	"fmt"
	"runtime"
)

// Build-time variables (injected by ldflags)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func versionString() string {
	return fmt.Sprintf("pixscale %s (commit %s, built %s, %s)", version, gitCommit, buildTime, runtime.Version())
}
