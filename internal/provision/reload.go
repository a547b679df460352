package provision

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultReloadCommand tells Asterisk to re-read pjsip.conf.
var DefaultReloadCommand = []string{"asterisk", "-rx", "pjsip reload"}

// Reloader asks the telephony engine to pick up the written config.
type Reloader interface {
	Reload(ctx context.Context) error
}

// CommandReloader shells out to the Asterisk CLI. The command is
// configurable so test rigs and containers can substitute their own.
type CommandReloader struct {
	Command []string
}

func NewCommandReloader(command []string) *CommandReloader {
	if len(command) == 0 {
		command = DefaultReloadCommand
	}
	return &CommandReloader{Command: command}
}

func (r *CommandReloader) Reload(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, r.Command[0], r.Command[1:]...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return fmt.Errorf("%s: %w (%s)", r.Command[0], err, msg)
		}
		return fmt.Errorf("%s: %w", r.Command[0], err)
	}
	return nil
}

// ReloaderFunc adapts a function to the Reloader interface.
type ReloaderFunc func(ctx context.Context) error

func (f ReloaderFunc) Reload(ctx context.Context) error { return f(ctx) }
