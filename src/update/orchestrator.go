// Package update sequences the full release pipeline: backup, stack
// rebuild, migration, restart, and health verification.
package update

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"stackops/src/backup"
	"stackops/src/config"
	"stackops/src/dockercli"
	"stackops/src/health"
	"stackops/src/migrate"
	"stackops/src/snapshot"
)

// Report is the orchestrator's terminal output. Health entries are
// informational: unreachable services are reported, never turned into a
// pipeline failure.
type Report struct {
	Snapshot  *snapshot.Snapshot
	Migration *migrate.Outcome
	Health    []health.Record
}

// Orchestrator runs the update pipeline. Every stage is gated on the
// previous one except health checks and the final cleanup, which are
// best-effort. There is no automatic rollback; the documented manual
// procedure is a restore from the pre-update snapshot.
type Orchestrator struct {
	cfg     *config.Config
	client  dockercli.Client
	backup  *backup.Engine
	machine *migrate.Machine
	prober  *health.Prober
	log     *zap.SugaredLogger
	out     io.Writer

	// Sleep is swappable so tests skip the warm-up wait.
	Sleep func(time.Duration)
}

// New builds an update orchestrator. The runtime client is required
// here: updating without a runtime is meaningless.
func New(cfg *config.Config, client dockercli.Client, bk *backup.Engine, machine *migrate.Machine, prober *health.Prober, log *zap.SugaredLogger, out io.Writer) *Orchestrator {
	if out == nil {
		out = io.Discard
	}
	return &Orchestrator{
		cfg:     cfg,
		client:  client,
		backup:  bk,
		machine: machine,
		prober:  prober,
		log:     log,
		out:     out,
		Sleep:   time.Sleep,
	}
}

// Run executes the pipeline. confirm gates the migration machine's
// destructive fallback, exactly as in a standalone migrate run.
func (o *Orchestrator) Run(confirm func(question string) (bool, error)) (*Report, error) {
	report := &Report{}

	fmt.Fprintln(o.out, "[1/8] Pre-update backup")
	snap, err := o.backup.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("pre-update backup: %w", err)
	}
	report.Snapshot = snap

	fmt.Fprintln(o.out, "[2/8] Stopping stack")
	if err := o.client.ComposeDown(); err != nil {
		return report, fmt.Errorf("stop stack: %w", err)
	}

	fmt.Fprintln(o.out, "[3/8] Pulling newest images")
	if err := o.client.ComposePull(); err != nil {
		return report, fmt.Errorf("pull images: %w", err)
	}

	fmt.Fprintln(o.out, "[4/8] Rebuilding images without cache")
	if err := o.client.ComposeBuild(true); err != nil {
		return report, fmt.Errorf("rebuild images: %w", err)
	}

	fmt.Fprintln(o.out, "[5/8] Running migration")
	outcome, err := o.machine.Apply(confirm)
	if err != nil {
		return report, fmt.Errorf("migration: %w", err)
	}
	report.Migration = outcome

	fmt.Fprintln(o.out, "[6/8] Starting stack")
	if err := o.client.ComposeUp(); err != nil {
		return report, fmt.Errorf("start stack: %w", err)
	}

	fmt.Fprintf(o.out, "[7/8] Waiting %s for services to warm up\n", o.cfg.Warmup())
	o.Sleep(o.cfg.Warmup())
	report.Health = o.prober.ProbeAll(o.cfg.Services)
	for _, r := range health.Unreachable(report.Health) {
		o.log.Warnw("service unreachable after update", "service", r.Service)
	}

	fmt.Fprintln(o.out, "[8/8] Cleaning up unused runtime resources")
	if err := o.client.Prune(); err != nil {
		o.log.Warnw("runtime cleanup failed, continuing", "error", err)
	}
	return report, nil
}
