//go:build windows

package main

import "os/exec"

// Windows has no Setsid; the started process already outlives the parent.
func configureServerProc(cmd *exec.Cmd) {}
