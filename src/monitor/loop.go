// Package monitor is the live dashboard: a fixed-interval refresh loop
// that renders host and stack status and dispatches single-character
// operator commands.
package monitor

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"stackops/src/config"
	"stackops/src/dockercli"
	"stackops/src/health"
)

// Loop is the monitor. One render per cycle; commands run synchronously
// to completion before the next render, so there is no background
// refresh while, say, logs are being shown.
type Loop struct {
	cfg    *config.Config
	client dockercli.Client
	prober *health.Prober
	log    *zap.SugaredLogger
	in     io.Reader
	out    io.Writer

	// Backup and Update are the leaf actions behind the b and u keys.
	Backup func() error
	Update func() error

	// stats is swappable so tests render deterministic numbers.
	stats func(string) HostStats
	now   func() time.Time
}

// New builds a monitor loop reading commands from in.
func New(cfg *config.Config, client dockercli.Client, prober *health.Prober, log *zap.SugaredLogger, in io.Reader, out io.Writer) *Loop {
	return &Loop{
		cfg:    cfg,
		client: client,
		prober: prober,
		log:    log,
		in:     in,
		out:    out,
		stats:  ReadHostStats,
		now:    time.Now,
	}
}

// Run renders until the operator quits or input ends. Waiting for a
// command is bounded by the refresh interval; silence means refresh.
func (l *Loop) Run() error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(l.in)
		for sc.Scan() {
			lines <- strings.TrimSpace(strings.ToLower(sc.Text()))
		}
	}()

	for {
		l.render()
		select {
		case cmd, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := l.dispatch(cmd); quit {
				return nil
			}
		case <-time.After(l.cfg.MonitorInterval()):
			// fall through to the next render
		}
	}
}

// dispatch handles one command and reports whether the loop should end.
func (l *Loop) dispatch(cmd string) bool {
	switch cmd {
	case "", "r":
		// refresh happens on re-render
	case "l":
		logs, err := l.client.ComposeLogs(100)
		if err != nil {
			fmt.Fprintf(l.out, "logs: %v\n", err)
			return false
		}
		fmt.Fprintln(l.out, logs)
	case "s":
		l.runAction("start stack", l.client.ComposeUp)
	case "x":
		l.runAction("stop stack", l.client.ComposeDown)
	case "b":
		if l.Backup == nil {
			fmt.Fprintln(l.out, "backup action not wired")
			return false
		}
		l.runAction("backup", l.Backup)
	case "u":
		if l.Update == nil {
			fmt.Fprintln(l.out, "update action not wired")
			return false
		}
		l.runAction("update", l.Update)
	case "q":
		return true
	default:
		fmt.Fprintf(l.out, "unknown command %q\n", cmd)
	}
	return false
}

func (l *Loop) runAction(name string, fn func() error) {
	fmt.Fprintf(l.out, "--- %s ---\n", name)
	if err := fn(); err != nil {
		fmt.Fprintf(l.out, "%s failed: %v\n", name, err)
		l.log.Warnw("monitor action failed", "action", name, "error", err)
		return
	}
	fmt.Fprintf(l.out, "%s done\n", name)
}

// render draws one dashboard frame.
func (l *Loop) render() {
	fmt.Fprintf(l.out, "\n=== stack monitor @ %s ===\n", l.now().Format("15:04:05"))

	s := l.stats(l.cfg.BackupRoot)
	fmt.Fprintf(l.out, "load: %.2f %.2f %.2f  mem: %s free of %s  disk: %s free of %s\n",
		s.Load1, s.Load5, s.Load15,
		humanize.IBytes(s.MemAvailableBytes), humanize.IBytes(s.MemTotalBytes),
		humanize.IBytes(s.DiskFreeBytes), humanize.IBytes(s.DiskTotalBytes))

	running, total := l.containerCounts()
	fmt.Fprintf(l.out, "containers: %d running / %d total\n", running, total)

	tw := tabwriter.NewWriter(l.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SERVICE\tSTATUS")
	for _, r := range l.prober.ProbeAll(l.cfg.Services) {
		status := "up"
		if !r.Reachable {
			status = "DOWN"
		}
		fmt.Fprintf(tw, "%s\t%s\n", r.Service, status)
	}
	tw.Flush()

	fmt.Fprintln(l.out, "[r]efresh [l]ogs [s]tart e[x]it-stack [b]ackup [u]pdate [q]uit")
}

func (l *Loop) containerCounts() (running, total int) {
	containers, err := l.client.ListContainers()
	if err != nil {
		return 0, 0
	}
	for _, c := range containers {
		if c.State == "running" {
			running++
		}
	}
	return running, len(containers)
}
