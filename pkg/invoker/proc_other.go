//go:build !unix

package invoker

import "os/exec"

func configureProcessGroup(_ *exec.Cmd) {}
