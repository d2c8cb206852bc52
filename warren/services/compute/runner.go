package compute

import (
	"fmt"
	"os/exec"
)

// Runner executes host commands. The live runner shells out; tests swap
// in a recorder.
type Runner interface {
	Run(name string, args ...string) error
}

// ExecRunner runs commands on the host, folding stderr into the error.
type ExecRunner struct{}

func (ExecRunner) Run(name string, args ...string) error {
	out, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s failed: %s", name, string(out))
	}
	return nil
}
