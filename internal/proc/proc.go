// Package proc abstracts process-level control so the dispatcher's never-stop
// mode can be tested without signalling the test process.
package proc

import (
	"fmt"
	"os"
	"syscall"
)

// Controller requests termination of the owning process.
type Controller interface {
	Terminate() error
}

type selfController struct{}

// Self returns a Controller that delivers SIGTERM to the current process.
func Self() Controller {
	return selfController{}
}

func (selfController) Terminate() error {
	p, err := os.FindProcess(os.Getpid())
	if err != nil {
		return fmt.Errorf("find own process: %w", err)
	}
	if err := p.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal self: %w", err)
	}
	return nil
}
