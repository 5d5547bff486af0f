// Package migrate moves a host's persisted schema state between
// releases. The single source of truth is the version marker file; it is
// rewritten only after a transition fully commits, so an interrupted
// migration re-enters the same transition on retry.
package migrate

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"stackops/src/backup"
	"stackops/src/config"
	"stackops/src/dockercli"
	"stackops/src/version"
)

// Action names what a migration run did.
type Action string

const (
	// ActionNone means the marker already matched the target.
	ActionNone Action = "up-to-date"
	// ActionForward means a known legacy version was migrated in place.
	ActionForward Action = "forward-migration"
	// ActionRebuild means unrecognized state was backed up and wiped.
	ActionRebuild Action = "full-rebuild"
)

// Outcome reports one migration run.
type Outcome struct {
	From   string
	To     string
	Action Action
}

// ErrDeclined is returned when the operator refuses the destructive
// full-rebuild path.
var ErrDeclined = errors.New("migration declined by operator")

// legacyConfigRenames maps configuration keys the 0.x stack used to
// their current names. Applying the rename twice is a no-op.
var legacyConfigRenames = map[string]string{
	"MEMORY_DIR":  "AGENT_DATA_DIR",
	"CHROMA_HOST": "CHROMADB_HOST",
	"CHROMA_PORT": "CHROMADB_PORT",
}

// Machine is the version state machine. client may be nil on hosts
// without a runtime; the rebuild path then skips volume removal.
type Machine struct {
	cfg    *config.Config
	client dockercli.Client
	backup *backup.Engine
	log    *zap.SugaredLogger
	out    io.Writer
}

// New builds a migration machine backed by the given backup engine.
func New(cfg *config.Config, client dockercli.Client, bk *backup.Engine, log *zap.SugaredLogger, out io.Writer) *Machine {
	if out == nil {
		out = io.Discard
	}
	return &Machine{cfg: cfg, client: client, backup: bk, log: log, out: out}
}

// Current reads the persisted version marker. A missing marker reads as
// 0.0.0, the pre-versioning state.
func (m *Machine) Current() (string, error) {
	b, err := os.ReadFile(m.cfg.VersionFile)
	if err != nil {
		if os.IsNotExist(err) {
			return "0.0.0", nil
		}
		return "", fmt.Errorf("read version marker: %w", err)
	}
	v := strings.TrimSpace(string(b))
	if v == "" {
		return "0.0.0", nil
	}
	return v, nil
}

// Apply dispatches on the current version and runs the matching
// transition. confirm gates the destructive rebuild path; it may be nil
// to always decline.
func (m *Machine) Apply(confirm func(question string) (bool, error)) (*Outcome, error) {
	current, err := m.Current()
	if err != nil {
		return nil, err
	}
	target := version.Version
	outcome := &Outcome{From: current, To: target}

	switch {
	case current == target:
		fmt.Fprintf(m.out, "Already at version %s, nothing to migrate\n", target)
		outcome.Action = ActionNone
		return outcome, nil

	case strings.HasPrefix(current, "0."):
		fmt.Fprintf(m.out, "Migrating %s -> %s\n", current, target)
		if err := m.migrateLegacy(); err != nil {
			return nil, fmt.Errorf("migrate from %s: %w", current, err)
		}
		if err := m.writeMarker(target); err != nil {
			return nil, err
		}
		outcome.Action = ActionForward
		return outcome, nil

	default:
		fmt.Fprintf(m.out, "Unrecognized version %q; a full rebuild is required\n", current)
		if confirm == nil {
			return nil, ErrDeclined
		}
		ok, err := confirm(fmt.Sprintf("Rebuild from version %s? This wipes all persisted stack state after a backup", current))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrDeclined
		}
		if err := m.rebuild(); err != nil {
			return nil, fmt.Errorf("rebuild from %s: %w", current, err)
		}
		if err := m.writeMarker(target); err != nil {
			return nil, err
		}
		outcome.Action = ActionRebuild
		return outcome, nil
	}
}

// migrateLegacy is the 0.x forward path: create the directories the
// current layout expects and rename known configuration keys. Both steps
// are idempotent, so a crashed run can simply be repeated.
func (m *Machine) migrateLegacy() error {
	for _, dir := range []string{m.cfg.DataDir, m.cfg.WorkspaceDir, m.cfg.LogsDir, m.cfg.ConfigDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return m.rewriteLegacyEnv(filepath.Join(m.cfg.StackDir, ".env"))
}

// rewriteLegacyEnv renames deprecated keys in the stack's env file.
// A missing env file is fine; fresh installs have none.
func (m *Machine) rewriteLegacyEnv(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	lines := strings.Split(string(b), "\n")
	changed := false
	for i, line := range lines {
		for old, now := range legacyConfigRenames {
			if strings.HasPrefix(line, old+"=") {
				lines[i] = now + strings.TrimPrefix(line, old)
				changed = true
			}
		}
	}
	if !changed {
		return nil
	}
	m.log.Infow("rewrote legacy configuration keys", "file", path)
	return os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644)
}

// rebuild is the unknown-version fallback: snapshot everything, then
// destroy all persisted stack state. Unknown state is never partially
// migrated. The backup is mandatory; if it fails, nothing is destroyed.
func (m *Machine) rebuild() error {
	fmt.Fprintln(m.out, "Backing up before rebuild")
	if _, err := m.backup.Snapshot(); err != nil {
		return fmt.Errorf("pre-rebuild backup: %w", err)
	}

	if m.client != nil {
		fmt.Fprintln(m.out, "Stopping stack and removing volumes")
		if err := m.client.ComposeDown(); err != nil {
			m.log.Warnw("stack stop failed, continuing", "error", err)
		}
		for _, name := range m.cfg.Volumes {
			exists, err := m.client.VolumeExists(name)
			if err != nil || !exists {
				continue
			}
			if err := m.client.RemoveVolume(name); err != nil {
				m.log.Warnw("volume removal failed", "volume", name, "error", err)
			}
		}
	}

	fmt.Fprintln(m.out, "Wiping data, workspace, and log trees")
	for _, dir := range []string{m.cfg.DataDir, m.cfg.WorkspaceDir, m.cfg.LogsDir} {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("wipe %s: %w", dir, err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("recreate %s: %w", dir, err)
		}
	}
	return nil
}

// writeMarker persists the new current version atomically so a crash
// leaves either the old or the new marker, never a torn one.
func (m *Machine) writeMarker(v string) error {
	dir := filepath.Dir(m.cfg.VersionFile)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create marker dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".version-")
	if err != nil {
		return fmt.Errorf("write version marker: %w", err)
	}
	if _, err := tmp.WriteString(v + "\n"); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write version marker: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write version marker: %w", err)
	}
	if err := os.Rename(tmp.Name(), m.cfg.VersionFile); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write version marker: %w", err)
	}
	return nil
}
