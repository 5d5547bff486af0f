package dockercli

import (
	"fmt"
	"os"
	"sort"
)

// FakeClient is an in-memory Client for unit tests. Volume payloads are
// plain byte slices; Export/Import move them to and from real files so
// engines that stage payloads on disk work unchanged.
type FakeClient struct {
	VolumeData map[string][]byte
	Containers []Container
	Images     []string
	Networks   []string

	// FailExports marks volumes whose export should error mid-run.
	FailExports map[string]bool
	// FailImports marks volumes whose import should error mid-run.
	FailImports map[string]bool

	StackUp    bool
	UpCalls    int
	DownCalls  int
	PullCalls  int
	BuildCalls int
	PruneCalls int
	LogsText   string
	PSText     string
}

// NewFake returns an empty fake runtime.
func NewFake() *FakeClient {
	return &FakeClient{
		VolumeData:  map[string][]byte{},
		FailExports: map[string]bool{},
		FailImports: map[string]bool{},
	}
}

func (f *FakeClient) ListContainers() ([]Container, error) {
	return append([]Container(nil), f.Containers...), nil
}

func (f *FakeClient) ListImages() ([]string, error) {
	return append([]string(nil), f.Images...), nil
}

func (f *FakeClient) ListVolumes() ([]string, error) {
	names := make([]string, 0, len(f.VolumeData))
	for n := range f.VolumeData {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (f *FakeClient) ListNetworks() ([]string, error) {
	return append([]string(nil), f.Networks...), nil
}

func (f *FakeClient) VolumeExists(name string) (bool, error) {
	_, ok := f.VolumeData[name]
	return ok, nil
}

func (f *FakeClient) CreateVolume(name string) error {
	if _, ok := f.VolumeData[name]; ok {
		return fmt.Errorf("volume already exists: %s", name)
	}
	f.VolumeData[name] = nil
	return nil
}

func (f *FakeClient) RemoveVolume(name string) error {
	if _, ok := f.VolumeData[name]; !ok {
		return fmt.Errorf("volume not found: %s", name)
	}
	delete(f.VolumeData, name)
	return nil
}

func (f *FakeClient) ExportVolume(name, destPath string) error {
	if f.FailExports[name] {
		return fmt.Errorf("export %s: simulated failure", name)
	}
	data, ok := f.VolumeData[name]
	if !ok {
		return fmt.Errorf("volume not found: %s", name)
	}
	return os.WriteFile(destPath, data, 0o644)
}

func (f *FakeClient) ImportVolume(name, srcPath string) error {
	if f.FailImports[name] {
		return fmt.Errorf("import %s: simulated failure", name)
	}
	if _, ok := f.VolumeData[name]; !ok {
		return fmt.Errorf("volume not found: %s", name)
	}
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return err
	}
	f.VolumeData[name] = data
	return nil
}

func (f *FakeClient) ComposeUp() error {
	f.UpCalls++
	f.StackUp = true
	return nil
}

func (f *FakeClient) ComposeDown() error {
	f.DownCalls++
	f.StackUp = false
	return nil
}

func (f *FakeClient) ComposePull() error {
	f.PullCalls++
	return nil
}

func (f *FakeClient) ComposeBuild(noCache bool) error {
	f.BuildCalls++
	return nil
}

func (f *FakeClient) ComposePS() (string, error) {
	return f.PSText, nil
}

func (f *FakeClient) ComposeLogs(tailLines int) (string, error) {
	return f.LogsText, nil
}

func (f *FakeClient) ContainerRunning(name string) (bool, error) {
	for _, ct := range f.Containers {
		if ct.Name == name {
			return ct.State == "running", nil
		}
	}
	return false, nil
}

func (f *FakeClient) Prune() error {
	f.PruneCalls++
	return nil
}
