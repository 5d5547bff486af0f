package dockercli

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// BinaryInfo describes a detected docker CLI binary.
type BinaryInfo struct {
	Path    string
	Version string
}

// Detect locates the docker binary on PATH and confirms the daemon
// answers. The context bounds both subprocesses.
func Detect(ctx context.Context) (BinaryInfo, error) {
	exe, err := exec.LookPath("docker")
	if err != nil {
		return BinaryInfo{}, fmt.Errorf("%w: docker binary not found on PATH", ErrUnavailable)
	}
	ver, err := queryVersion(ctx, exe)
	if err != nil {
		return BinaryInfo{}, err
	}
	return BinaryInfo{Path: exe, Version: ver}, nil
}

// queryVersion executes `docker version` against the client and the
// daemon; a daemon that is installed but not running fails here.
func queryVersion(ctx context.Context, exe string) (string, error) {
	// Guard against a hung daemon socket with a short timeout.
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	out, err := exec.CommandContext(ctx, exe, "version", "--format", "{{.Server.Version}}").Output()
	if err != nil {
		return "", fmt.Errorf("%w: docker daemon not responding: %v", ErrUnavailable, err)
	}
	ver := strings.TrimSpace(string(out))
	if ver == "" {
		return "", fmt.Errorf("%w: could not determine docker server version", ErrUnavailable)
	}
	return ver, nil
}
