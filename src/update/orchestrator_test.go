package update_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"stackops/src/backup"
	"stackops/src/config"
	"stackops/src/dockercli"
	"stackops/src/health"
	"stackops/src/migrate"
	"stackops/src/update"
)

func testConfig(base string) *config.Config {
	return &config.Config{
		StackDir:     base,
		ComposeFile:  "docker-compose.yml",
		BackupRoot:   filepath.Join(base, "backups"),
		VersionFile:  filepath.Join(base, ".stack-version"),
		ConfigDir:    filepath.Join(base, "config"),
		SourceDir:    filepath.Join(base, "src"),
		ScriptsDir:   filepath.Join(base, "scripts"),
		DataDir:      filepath.Join(base, "data"),
		WorkspaceDir: filepath.Join(base, "workspace"),
		LogsDir:      filepath.Join(base, "logs"),
		Volumes:      []string{"redis-data"},
		Keep:         7,

		WarmupSeconds:       1,
		ProbeTimeoutSeconds: 1,
	}
}

func newOrchestrator(cfg *config.Config, fake *dockercli.FakeClient, out *bytes.Buffer) *update.Orchestrator {
	log := zap.NewNop().Sugar()
	bk := backup.New(cfg, fake, log, out)
	machine := migrate.New(cfg, fake, bk, log, out)
	prober := health.NewProber(fake, cfg.ProbeTimeout())
	orch := update.New(cfg, fake, bk, machine, prober, log, out)
	orch.Sleep = func(time.Duration) {}
	return orch
}

func TestRun_FullPipeline(t *testing.T) {
	cfg := testConfig(t.TempDir())
	if err := os.MkdirAll(cfg.ConfigDir, 0o755); err != nil {
		t.Fatal(err)
	}

	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(up.Close)

	cfg.Services = []config.ServiceProbe{
		{Name: "agent", URL: up.URL},
		{Name: "litellm", URL: up.URL},
		{Name: "chromadb", URL: "http://127.0.0.1:1/heartbeat"},
		{Name: "ollama", URL: "http://127.0.0.1:1/api/tags"},
		{Name: "redis", Container: "agent-redis"},
	}
	fake := dockercli.NewFake()
	fake.Containers = []dockercli.Container{{Name: "agent-redis", State: "running"}}
	fake.StackUp = true

	var out bytes.Buffer
	report, err := newOrchestrator(cfg, fake, &out).Run(func(string) (bool, error) { return true, nil })
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	// Every stage ran, in order.
	if fake.DownCalls != 1 || fake.PullCalls != 1 || fake.BuildCalls != 1 || fake.UpCalls != 1 || fake.PruneCalls != 1 {
		t.Fatalf("stage calls: down=%d pull=%d build=%d up=%d prune=%d",
			fake.DownCalls, fake.PullCalls, fake.BuildCalls, fake.UpCalls, fake.PruneCalls)
	}
	if !fake.StackUp {
		t.Fatal("stack not running after update")
	}
	if report.Snapshot == nil {
		t.Fatal("missing pre-update snapshot")
	}
	if report.Migration == nil || report.Migration.Action != migrate.ActionForward {
		t.Fatalf("migration = %+v", report.Migration)
	}

	// Exactly the two dead endpoints are unreachable; their failure
	// does not fail the pipeline.
	if len(report.Health) != 5 {
		t.Fatalf("health records = %d", len(report.Health))
	}
	wantDown := map[string]bool{"chromadb": true, "ollama": true}
	for _, r := range report.Health {
		if r.Reachable == wantDown[r.Service] {
			t.Fatalf("%s reachable = %v", r.Service, r.Reachable)
		}
	}
	if !strings.Contains(out.String(), "[8/8]") {
		t.Fatalf("pipeline output incomplete:\n%s", out.String())
	}
}

func TestRun_BackupFailureAbortsBeforeAnythingStops(t *testing.T) {
	cfg := testConfig(t.TempDir())
	// An unwritable backup root makes the bundling step fail.
	if err := os.MkdirAll(cfg.BackupRoot, 0o555); err != nil {
		t.Fatal(err)
	}
	if os.Geteuid() == 0 {
		t.Skip("backup root permissions do not bind for root")
	}
	fake := dockercli.NewFake()
	fake.StackUp = true

	var out bytes.Buffer
	_, err := newOrchestrator(cfg, fake, &out).Run(func(string) (bool, error) { return true, nil })
	if err == nil {
		t.Fatal("expected backup failure to abort the pipeline")
	}
	if fake.DownCalls != 0 {
		t.Fatal("stack stopped despite failed backup")
	}
	if !fake.StackUp {
		t.Fatal("stack state changed despite failed backup")
	}
}
