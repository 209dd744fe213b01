package transport

import (
	"fmt"
	"log/slog"
	"os/exec"
)

// Navigator hands a URI to the operating system. It returns once the
// hand-off is made; there is no signal that the target app received it.
type Navigator interface {
	Navigate(uri string) error
}

// NavigatorFunc adapts a function to Navigator
type NavigatorFunc func(uri string) error

// Navigate implements Navigator
func (f NavigatorFunc) Navigate(uri string) error {
	return f(uri)
}

// CommandNavigator launches a URI with an external command, for example
// "am start -a android.intent.action.VIEW -d" under Termux or "xdg-open".
// The URI is appended as the last argument.
type CommandNavigator struct {
	Name string
	Args []string
}

// Navigate starts the command and does not wait for it
func (c CommandNavigator) Navigate(uri string) error {
	cmd := exec.Command(c.Name, append(append([]string{}, c.Args...), uri)...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to launch %s: %w", c.Name, err)
	}
	go cmd.Wait()
	return nil
}

// Intent is the fire-and-forget URI transport
type Intent struct {
	navigator Navigator
	logger    *slog.Logger
}

// NewIntent creates an intent transport. A nil navigator makes Send fail
// with ErrNoNavigator; callers then hand the URI to the browser themselves.
func NewIntent(navigator Navigator, logger *slog.Logger) *Intent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Intent{navigator: navigator, logger: logger}
}

// Send navigates to uri. A nil error means the hand-off happened, not that
// anything printed.
func (i *Intent) Send(uri string) error {
	if i.navigator == nil {
		return ErrNoNavigator
	}

	if err := i.navigator.Navigate(uri); err != nil {
		return err
	}

	i.logger.Debug("intent handed off", "bytes", len(uri))
	return nil
}
