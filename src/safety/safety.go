// Package safety holds the guard rails in front of destructive
// operations: interactive confirmation and privilege checks.
package safety

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Options carries the global safety flags.
type Options struct {
	// Yes answers every prompt affirmatively (non-interactive runs).
	Yes bool
	// DryRun plans but never changes anything; prompts decline.
	DryRun bool
	// Force skips the root-privilege check.
	Force bool
}

// ErrNotRoot is returned when a privileged command runs unprivileged.
var ErrNotRoot = errors.New("this command must run as root")

// Confirm prompts before a destructive action. Yes short-circuits to
// true, DryRun to false; otherwise only an explicit y/yes proceeds.
func Confirm(opts Options, in io.Reader, out io.Writer, question string) (bool, error) {
	if opts.DryRun {
		return false, nil
	}
	if opts.Yes {
		return true, nil
	}
	if out != nil {
		fmt.Fprintf(out, "%s [y/N]: ", strings.TrimSpace(question))
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.TrimSpace(strings.ToLower(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// RequireRoot fails unless the process runs with effective uid 0. Force
// bypasses the check for setups that grant docker access another way.
func RequireRoot(opts Options) error {
	if opts.Force {
		return nil
	}
	if os.Geteuid() != 0 {
		return ErrNotRoot
	}
	return nil
}
