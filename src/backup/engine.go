// Package backup produces snapshots: one timestamped, retained bundle
// holding the stack's trees, volumes, host directories, and manifest.
package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"stackops/src/archive"
	"stackops/src/config"
	"stackops/src/dockercli"
	"stackops/src/snapshot"
	"stackops/src/version"
)

// TreeStatus is the outcome of one best-effort tree copy. Missing trees
// are expected on a fresh host and never fail the run.
type TreeStatus int

const (
	TreeCopied TreeStatus = iota
	TreeMissing
	TreeFailed
)

// TreeResult reports one tree copy.
type TreeResult struct {
	Name   string
	Status TreeStatus
	Err    error
}

// Engine composes the archiver, the manifest builder, and retention into
// the snapshot operation. Client may be nil when no container runtime is
// present; volumes are then skipped and the manifest records their
// absence.
type Engine struct {
	cfg    *config.Config
	client dockercli.Client
	log    *zap.SugaredLogger
	out    io.Writer

	// Clock is swappable so tests mint deterministic snapshot ids.
	Clock func() time.Time
}

// New builds a backup engine. out receives operator-facing progress
// lines and may be nil.
func New(cfg *config.Config, client dockercli.Client, log *zap.SugaredLogger, out io.Writer) *Engine {
	if out == nil {
		out = io.Discard
	}
	return &Engine{cfg: cfg, client: client, log: log, out: out, Clock: time.Now}
}

// Snapshot captures everything configured into one bundle under the
// backup root, then enforces retention. Tree copies, volume exports, and
// diagnostics are independently best-effort; only the final bundling
// step is fatal, because an unreadable artifact is worse than none.
func (e *Engine) Snapshot() (*snapshot.Snapshot, error) {
	now := e.Clock()
	id := snapshot.NewID(now)
	staging := filepath.Join(e.cfg.BackupRoot, ".staging-"+id)
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	var units []snapshot.Unit

	fmt.Fprintln(e.out, "[1/6] Copying configuration, source, and script trees")
	trees := []struct {
		name string
		kind snapshot.Kind
		src  string
	}{
		{"config", snapshot.KindConfigTree, e.cfg.ConfigDir},
		{"src", snapshot.KindSourceTree, e.cfg.SourceDir},
		{"scripts", snapshot.KindScriptTree, e.cfg.ScriptsDir},
	}
	for _, t := range trees {
		res := e.copyTree(t.name, t.src, filepath.Join(staging, t.name))
		if res.Status == TreeCopied {
			units = append(units, snapshot.Unit{Name: t.name, Kind: t.kind, PayloadRef: t.name})
		}
	}

	fmt.Fprintln(e.out, "[2/6] Archiving container volumes")
	units = append(units, e.archiveVolumes(staging)...)

	fmt.Fprintln(e.out, "[3/6] Capturing runtime diagnostics")
	e.captureDiagnostics(staging)

	fmt.Fprintln(e.out, "[4/6] Copying host data directories")
	hostDirs := []struct {
		name string
		src  string
	}{
		{"data", e.cfg.DataDir},
		{"workspace", e.cfg.WorkspaceDir},
		{"logs", e.cfg.LogsDir},
	}
	for _, h := range hostDirs {
		payload := filepath.Join("hostdirs", h.name)
		res := e.copyTree(h.name, h.src, filepath.Join(staging, payload))
		if res.Status == TreeCopied {
			units = append(units, snapshot.Unit{Name: h.name, Kind: snapshot.KindHostDir, PayloadRef: payload})
		}
	}

	fmt.Fprintln(e.out, "[5/6] Writing manifest")
	manifest, err := e.buildManifest(staging, id, now, units)
	if err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	fmt.Fprintln(e.out, "[6/6] Bundling snapshot archive")
	bundlePath := filepath.Join(e.cfg.BackupRoot, snapshot.BundleName(id))
	if _, err := archive.PackDir(staging, bundlePath); err != nil {
		return nil, fmt.Errorf("bundle snapshot: %w", err)
	}
	if err := os.RemoveAll(staging); err != nil {
		e.log.Warnw("could not remove staging dir", "dir", staging, "error", err)
	}

	removed, err := snapshot.Prune(e.cfg.BackupRoot, e.cfg.Keep)
	if err != nil {
		e.log.Warnw("retention pruning failed", "error", err)
	}
	for _, p := range removed {
		e.log.Infow("pruned old snapshot", "path", p)
	}

	fmt.Fprintf(e.out, "Snapshot %s complete (%d files)\n", id, manifest.FileCount)
	return &snapshot.Snapshot{Manifest: manifest, ArchivePath: bundlePath}, nil
}

// copyTree copies src into dest, reporting a missing source instead of
// failing the run.
func (e *Engine) copyTree(name, src, dest string) TreeResult {
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			e.log.Infow("tree absent, skipping", "tree", name, "path", src)
			return TreeResult{Name: name, Status: TreeMissing}
		}
		e.log.Warnw("tree unreadable, skipping", "tree", name, "path", src, "error", err)
		return TreeResult{Name: name, Status: TreeFailed, Err: err}
	}
	if err := archive.CopyTree(src, dest); err != nil {
		e.log.Warnw("tree copy failed, skipping", "tree", name, "path", src, "error", err)
		os.RemoveAll(dest)
		return TreeResult{Name: name, Status: TreeFailed, Err: err}
	}
	return TreeResult{Name: name, Status: TreeCopied}
}

// archiveVolumes exports each configured volume that exists. A failed
// export is logged and its unit omitted, so the manifest only ever
// references payloads that were fully written.
func (e *Engine) archiveVolumes(staging string) []snapshot.Unit {
	if e.client == nil {
		e.log.Infow("container runtime unavailable, skipping volumes")
		return nil
	}
	volDir := filepath.Join(staging, "volumes")
	if err := os.MkdirAll(volDir, 0o755); err != nil {
		e.log.Warnw("could not create volume staging dir", "error", err)
		return nil
	}
	var units []snapshot.Unit
	for _, name := range e.cfg.Volumes {
		exists, err := e.client.VolumeExists(name)
		if err != nil {
			e.log.Warnw("volume lookup failed, skipping", "volume", name, "error", err)
			continue
		}
		if !exists {
			e.log.Infow("volume absent, skipping", "volume", name)
			continue
		}
		payload := filepath.Join("volumes", name+".tar.gz")
		dest := filepath.Join(staging, payload)
		if err := e.client.ExportVolume(name, dest); err != nil {
			e.log.Warnw("volume export failed, omitting from snapshot", "volume", name, "error", err)
			os.Remove(dest)
			continue
		}
		units = append(units, snapshot.Unit{Name: name, Kind: snapshot.KindVolume, PayloadRef: filepath.ToSlash(payload)})
	}
	return units
}

// captureDiagnostics saves runtime listings and recent logs as plain
// text. These are informational only and never restored.
func (e *Engine) captureDiagnostics(staging string) {
	if e.client == nil {
		return
	}
	diagDir := filepath.Join(staging, "diagnostics")
	if err := os.MkdirAll(diagDir, 0o755); err != nil {
		e.log.Warnw("could not create diagnostics dir", "error", err)
		return
	}
	write := func(name, content string) {
		if err := os.WriteFile(filepath.Join(diagDir, name), []byte(content), 0o644); err != nil {
			e.log.Warnw("diagnostic write failed", "file", name, "error", err)
		}
	}
	if cs, err := e.client.ListContainers(); err == nil {
		var buf []byte
		for _, c := range cs {
			buf = append(buf, fmt.Sprintf("%s\t%s\t%s\n", c.Name, c.Image, c.State)...)
		}
		write("containers.txt", string(buf))
	}
	if imgs, err := e.client.ListImages(); err == nil {
		write("images.txt", joinLines(imgs))
	}
	if vols, err := e.client.ListVolumes(); err == nil {
		write("volumes.txt", joinLines(vols))
	}
	if nets, err := e.client.ListNetworks(); err == nil {
		write("networks.txt", joinLines(nets))
	}
	if logs, err := e.client.ComposeLogs(200); err == nil {
		write("compose-logs.txt", logs)
	}
}

// buildManifest indexes the staging area, derives the per-category
// flags from the units actually produced, and writes the manifest into
// the staging dir so it travels inside the bundle.
func (e *Engine) buildManifest(staging, id string, now time.Time, units []snapshot.Unit) (snapshot.Manifest, error) {
	idx, err := archive.Index(staging)
	if err != nil {
		return snapshot.Manifest{}, err
	}
	m := snapshot.Manifest{
		ID:            id,
		CreatedAt:     now.UTC(),
		SchemaVersion: version.Version,
		Units:         units,
		FileIndex:     idx.Files,
		FileCount:     len(idx.Files),
		TotalBytes:    idx.Bytes,
	}
	for _, u := range units {
		switch u.Kind {
		case snapshot.KindConfigTree:
			m.ConfigPresent = true
		case snapshot.KindSourceTree:
			m.SourcePresent = true
		case snapshot.KindScriptTree:
			m.ScriptsPresent = true
		case snapshot.KindVolume:
			m.VolumesPresent = true
		case snapshot.KindHostDir:
			m.HostDirsPresent = true
		}
	}
	if err := snapshot.WriteManifest(staging, m); err != nil {
		return snapshot.Manifest{}, err
	}
	return m, nil
}

func joinLines(lines []string) string {
	out := ""
	for _, l := range lines {
		out += l + "\n"
	}
	return out
}
