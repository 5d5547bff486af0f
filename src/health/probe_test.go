package health_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stackops/src/config"
	"stackops/src/dockercli"
	"stackops/src/health"
)

func okServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestProbeAll_MixedOutcomes(t *testing.T) {
	up := okServer(t)
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(failing.Close)

	fake := dockercli.NewFake()
	fake.Containers = []dockercli.Container{{Name: "agent-redis", State: "running"}}

	services := []config.ServiceProbe{
		{Name: "agent", URL: up.URL},
		{Name: "litellm", URL: failing.URL},
		{Name: "chromadb", URL: "http://127.0.0.1:1/heartbeat"}, // nothing listens
		{Name: "redis", Container: "agent-redis"},
		{Name: "worker", Container: "agent-worker"}, // not running
	}

	records := health.NewProber(fake, time.Second).ProbeAll(services)
	if len(records) != 5 {
		t.Fatalf("records = %d", len(records))
	}
	want := map[string]bool{
		"agent":    true,
		"litellm":  false,
		"chromadb": false,
		"redis":    true,
		"worker":   false,
	}
	for _, r := range records {
		if r.Reachable != want[r.Service] {
			t.Fatalf("%s reachable = %v, want %v", r.Service, r.Reachable, want[r.Service])
		}
		if r.CheckedAt.IsZero() {
			t.Fatalf("%s missing checkedAt", r.Service)
		}
	}

	bad := health.Unreachable(records)
	if len(bad) != 3 {
		t.Fatalf("unreachable = %d, want 3", len(bad))
	}
}

func TestProbe_ContainerCheckWithoutRuntime(t *testing.T) {
	records := health.NewProber(nil, time.Second).ProbeAll([]config.ServiceProbe{
		{Name: "redis", Container: "agent-redis"},
	})
	if records[0].Reachable {
		t.Fatal("container probe should fail without a runtime")
	}
}
