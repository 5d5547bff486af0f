package dockercli_test

import (
	"os"
	"path/filepath"
	"testing"

	"stackops/src/dockercli"
)

func TestFake_VolumeLifecycle(t *testing.T) {
	fake := dockercli.NewFake()
	if err := fake.CreateVolume("redis-data"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := fake.CreateVolume("redis-data"); err == nil {
		t.Fatal("duplicate create should fail")
	}
	exists, err := fake.VolumeExists("redis-data")
	if err != nil || !exists {
		t.Fatalf("exists = %v, %v", exists, err)
	}
	if err := fake.RemoveVolume("redis-data"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := fake.RemoveVolume("redis-data"); err == nil {
		t.Fatal("removing a missing volume should fail")
	}
}

func TestFake_ExportImportRoundTrip(t *testing.T) {
	fake := dockercli.NewFake()
	fake.VolumeData["chroma-data"] = []byte("EMBEDDINGS")

	payload := filepath.Join(t.TempDir(), "chroma-data.tar.gz")
	if err := fake.ExportVolume("chroma-data", payload); err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := os.Stat(payload); err != nil {
		t.Fatalf("payload not written: %v", err)
	}

	if err := fake.CreateVolume("chroma-copy"); err != nil {
		t.Fatal(err)
	}
	if err := fake.ImportVolume("chroma-copy", payload); err != nil {
		t.Fatalf("import: %v", err)
	}
	if got := string(fake.VolumeData["chroma-copy"]); got != "EMBEDDINGS" {
		t.Fatalf("imported content = %q", got)
	}
}

func TestFake_ComposeStateTracking(t *testing.T) {
	fake := dockercli.NewFake()
	if err := fake.ComposeUp(); err != nil {
		t.Fatal(err)
	}
	if !fake.StackUp || fake.UpCalls != 1 {
		t.Fatalf("up not tracked: %+v", fake)
	}
	if err := fake.ComposeDown(); err != nil {
		t.Fatal(err)
	}
	if fake.StackUp || fake.DownCalls != 1 {
		t.Fatalf("down not tracked: %+v", fake)
	}
}

func TestFake_ContainerRunning(t *testing.T) {
	fake := dockercli.NewFake()
	fake.Containers = []dockercli.Container{
		{Name: "agent-redis", State: "running"},
		{Name: "agent-old", State: "exited"},
	}
	running, err := fake.ContainerRunning("agent-redis")
	if err != nil || !running {
		t.Fatalf("agent-redis running = %v, %v", running, err)
	}
	running, err = fake.ContainerRunning("agent-old")
	if err != nil || running {
		t.Fatalf("agent-old running = %v, %v", running, err)
	}
	running, err = fake.ContainerRunning("ghost")
	if err != nil || running {
		t.Fatalf("ghost running = %v, %v", running, err)
	}
}
