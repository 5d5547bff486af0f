package dockercli

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Per-command deadlines. Image pulls and builds legitimately run long;
// everything else should return within a minute.
const (
	shortTimeout = 1 * time.Minute
	longTimeout  = 30 * time.Minute
)

// ExecClient implements Client by shelling out to the docker CLI. It is
// bound to one compose project directory at construction time.
type ExecClient struct {
	bin         string
	stackDir    string
	composeFile string
}

// Connect detects the local docker installation and returns a client
// bound to the given compose project.
func Connect(ctx context.Context, stackDir, composeFile string) (*ExecClient, error) {
	info, err := Detect(ctx)
	if err != nil {
		return nil, err
	}
	return &ExecClient{bin: info.Path, stackDir: stackDir, composeFile: composeFile}, nil
}

func (c *ExecClient) run(timeout time.Duration, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, c.bin, args...)
	cmd.Dir = c.stackDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("docker %s: %s", strings.Join(args, " "), msg)
	}
	return stdout.String(), nil
}

func (c *ExecClient) composeArgs(sub ...string) []string {
	args := []string{"compose", "-f", c.composePath()}
	return append(args, sub...)
}

func (c *ExecClient) composePath() string {
	if filepath.IsAbs(c.composeFile) {
		return c.composeFile
	}
	return filepath.Join(c.stackDir, c.composeFile)
}

func (c *ExecClient) ListContainers() ([]Container, error) {
	out, err := c.run(shortTimeout, "ps", "-a", "--format", "{{.Names}}\t{{.Image}}\t{{.State}}")
	if err != nil {
		return nil, err
	}
	var containers []Container
	for _, line := range splitLines(out) {
		parts := strings.SplitN(line, "\t", 3)
		if len(parts) != 3 {
			continue
		}
		containers = append(containers, Container{Name: parts[0], Image: parts[1], State: parts[2]})
	}
	return containers, nil
}

func (c *ExecClient) ListImages() ([]string, error) {
	out, err := c.run(shortTimeout, "images", "--format", "{{.Repository}}:{{.Tag}}")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

func (c *ExecClient) ListVolumes() ([]string, error) {
	out, err := c.run(shortTimeout, "volume", "ls", "--format", "{{.Name}}")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

func (c *ExecClient) ListNetworks() ([]string, error) {
	out, err := c.run(shortTimeout, "network", "ls", "--format", "{{.Name}}")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

func (c *ExecClient) VolumeExists(name string) (bool, error) {
	names, err := c.ListVolumes()
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

func (c *ExecClient) CreateVolume(name string) error {
	_, err := c.run(shortTimeout, "volume", "create", name)
	return err
}

func (c *ExecClient) RemoveVolume(name string) error {
	_, err := c.run(shortTimeout, "volume", "rm", name)
	return err
}

// ExportVolume streams the volume contents through a throwaway busybox
// container that tars /data onto a bind-mounted host directory.
func (c *ExecClient) ExportVolume(name, destPath string) error {
	destDir, destFile := filepath.Split(destPath)
	destDir = filepath.Clean(destDir)
	_, err := c.run(longTimeout, "run", "--rm",
		"-v", name+":/data:ro",
		"-v", destDir+":/backup",
		"busybox", "tar", "czf", "/backup/"+destFile, "-C", "/data", ".")
	return err
}

// ImportVolume is ExportVolume's inverse: it extracts a gzipped tar from
// the host into the (pre-created) volume.
func (c *ExecClient) ImportVolume(name, srcPath string) error {
	srcDir, srcFile := filepath.Split(srcPath)
	srcDir = filepath.Clean(srcDir)
	_, err := c.run(longTimeout, "run", "--rm",
		"-v", name+":/data",
		"-v", srcDir+":/backup:ro",
		"busybox", "tar", "xzf", "/backup/"+srcFile, "-C", "/data")
	return err
}

func (c *ExecClient) ComposeUp() error {
	_, err := c.run(longTimeout, c.composeArgs("up", "-d")...)
	return err
}

func (c *ExecClient) ComposeDown() error {
	_, err := c.run(shortTimeout, c.composeArgs("down")...)
	return err
}

func (c *ExecClient) ComposePull() error {
	_, err := c.run(longTimeout, c.composeArgs("pull")...)
	return err
}

func (c *ExecClient) ComposeBuild(noCache bool) error {
	sub := []string{"build"}
	if noCache {
		sub = append(sub, "--no-cache")
	}
	_, err := c.run(longTimeout, c.composeArgs(sub...)...)
	return err
}

func (c *ExecClient) ComposePS() (string, error) {
	return c.run(shortTimeout, c.composeArgs("ps")...)
}

func (c *ExecClient) ComposeLogs(tailLines int) (string, error) {
	return c.run(shortTimeout, c.composeArgs("logs", "--tail", fmt.Sprint(tailLines))...)
}

func (c *ExecClient) ContainerRunning(name string) (bool, error) {
	containers, err := c.ListContainers()
	if err != nil {
		return false, err
	}
	for _, ct := range containers {
		if ct.Name == name && ct.State == "running" {
			return true, nil
		}
	}
	return false, nil
}

func (c *ExecClient) Prune() error {
	_, err := c.run(shortTimeout, "system", "prune", "-f")
	return err
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
