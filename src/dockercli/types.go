package dockercli

import "errors"

// Container is the slice of `docker ps` output the tooling cares about.
type Container struct {
	Name  string
	Image string
	State string // running, exited, ...
}

// ErrUnavailable is returned by Connect when no usable container runtime
// is present on the host. Callers that can degrade (backup without
// volumes) branch on it; callers that cannot (update) fail fast.
var ErrUnavailable = errors.New("container runtime unavailable")

// Client is a narrow interface over the docker and compose CLI surface
// used by the lifecycle engines. Keep it small and focused on what we
// actually shell out for so it stays fakeable in tests.
type Client interface {
	// Listings, captured verbatim as snapshot diagnostics.
	ListContainers() ([]Container, error)
	ListImages() ([]string, error)
	ListVolumes() ([]string, error)
	ListNetworks() ([]string, error)

	// Volumes
	VolumeExists(name string) (bool, error)
	CreateVolume(name string) error
	RemoveVolume(name string) error
	// ExportVolume writes the volume's full contents as a gzipped tar
	// to destPath on the host.
	ExportVolume(name, destPath string) error
	// ImportVolume extracts a gzipped tar from srcPath into the volume.
	ImportVolume(name, srcPath string) error

	// Compose lifecycle for the configured stack.
	ComposeUp() error
	ComposeDown() error
	ComposePull() error
	ComposeBuild(noCache bool) error
	ComposePS() (string, error)
	ComposeLogs(tailLines int) (string, error)

	// ContainerRunning reports whether the named container is up.
	ContainerRunning(name string) (bool, error)

	// Prune removes unused containers, images, and networks.
	Prune() error
}
