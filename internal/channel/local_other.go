//go:build !unix

package channel

import "os/exec"

// exec.CommandContext kills the process directly on platforms without
// process groups.
func configureProcessGroup(*exec.Cmd) {}
