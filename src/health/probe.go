// Package health runs the short-timeout liveness probes shared by the
// update orchestrator and the live monitor.
package health

import (
	"net/http"
	"time"

	"stackops/src/config"
	"stackops/src/dockercli"
)

// Record is one probe outcome. It is consumed immediately and never
// persisted.
type Record struct {
	Service   string
	Reachable bool
	CheckedAt time.Time
}

// Prober evaluates the configured service table. Each probe carries its
// own timeout so one stalled service cannot delay the rest.
type Prober struct {
	client  dockercli.Client
	httpc   *http.Client
	timeout time.Duration
	now     func() time.Time
}

// NewProber builds a prober over the given runtime client; client may be
// nil, in which case container probes report unreachable.
func NewProber(client dockercli.Client, timeout time.Duration) *Prober {
	return &Prober{
		client:  client,
		httpc:   &http.Client{Timeout: timeout},
		timeout: timeout,
		now:     time.Now,
	}
}

// ProbeAll checks every service in order and returns one record per
// service. Probe failures are data, not errors.
func (p *Prober) ProbeAll(services []config.ServiceProbe) []Record {
	records := make([]Record, 0, len(services))
	for _, s := range services {
		records = append(records, Record{
			Service:   s.Name,
			Reachable: p.probe(s),
			CheckedAt: p.now().UTC(),
		})
	}
	return records
}

func (p *Prober) probe(s config.ServiceProbe) bool {
	if s.Container != "" {
		if p.client == nil {
			return false
		}
		running, err := p.client.ContainerRunning(s.Container)
		return err == nil && running
	}
	resp, err := p.httpc.Get(s.URL)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Unreachable filters records down to the failed ones.
func Unreachable(records []Record) []Record {
	var out []Record
	for _, r := range records {
		if !r.Reachable {
			out = append(out, r)
		}
	}
	return out
}
