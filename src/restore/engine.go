// Package restore replays a snapshot bundle back onto the host. The
// manifest is the only thing it trusts: a bundle without a well-formed
// one is rejected before anything is touched.
package restore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"stackops/src/archive"
	"stackops/src/config"
	"stackops/src/dockercli"
	"stackops/src/snapshot"
)

// UnitResult is the outcome of restoring one archive unit. Units are
// independent; a nil Err means the unit landed in full.
type UnitResult struct {
	Unit snapshot.Unit
	Err  error
}

// Result summarizes one restore run.
type Result struct {
	Manifest snapshot.Manifest
	Units    []UnitResult
}

// Failed returns the units that did not restore.
func (r *Result) Failed() []UnitResult {
	var out []UnitResult
	for _, u := range r.Units {
		if u.Err != nil {
			out = append(out, u)
		}
	}
	return out
}

// Engine applies snapshots. It stops the stack before overwriting live
// resources but never restarts it; starting again is the caller's call.
type Engine struct {
	cfg    *config.Config
	client dockercli.Client
	log    *zap.SugaredLogger
	out    io.Writer
}

// New builds a restore engine. client may be nil; volume units then fail
// individually while tree units still restore.
func New(cfg *config.Config, client dockercli.Client, log *zap.SugaredLogger, out io.Writer) *Engine {
	if out == nil {
		out = io.Discard
	}
	return &Engine{cfg: cfg, client: client, log: log, out: out}
}

// Restore validates and applies the bundle at archivePath. Unit failures
// are collected, not fatal: a degraded but partially restored system
// beats an aborted one. Only a missing or malformed manifest aborts.
func (e *Engine) Restore(archivePath string) (*Result, error) {
	if _, err := os.Stat(archivePath); err != nil {
		return nil, fmt.Errorf("snapshot archive: %w", err)
	}

	fmt.Fprintln(e.out, "[1/3] Unpacking and validating snapshot")
	tmp, err := os.MkdirTemp(filepath.Dir(archivePath), ".restore-")
	if err != nil {
		return nil, fmt.Errorf("create restore dir: %w", err)
	}
	defer os.RemoveAll(tmp)
	if err := archive.UnpackDir(archivePath, tmp); err != nil {
		return nil, fmt.Errorf("unpack snapshot: %w", err)
	}
	manifest, err := snapshot.LoadManifest(tmp)
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(e.out, "[2/3] Stopping service stack")
	if e.client != nil {
		if err := e.client.ComposeDown(); err != nil {
			e.log.Warnw("stack stop failed, continuing", "error", err)
		}
	}

	fmt.Fprintf(e.out, "[3/3] Restoring %d archive units\n", len(manifest.Units))
	result := &Result{Manifest: manifest}
	for _, unit := range manifest.Units {
		err := e.restoreUnit(tmp, unit)
		if err != nil {
			e.log.Warnw("unit restore failed, continuing",
				"unit", unit.Name, "kind", string(unit.Kind), "error", err)
		} else {
			fmt.Fprintf(e.out, "  restored %s (%s)\n", unit.Name, unit.Kind)
		}
		result.Units = append(result.Units, UnitResult{Unit: unit, Err: err})
	}
	return result, nil
}

func (e *Engine) restoreUnit(bundleDir string, unit snapshot.Unit) error {
	payload := filepath.Join(bundleDir, filepath.FromSlash(unit.PayloadRef))
	switch unit.Kind {
	case snapshot.KindVolume:
		return e.restoreVolume(unit.Name, payload)
	case snapshot.KindConfigTree, snapshot.KindSourceTree, snapshot.KindScriptTree, snapshot.KindHostDir:
		target, err := e.targetFor(unit)
		if err != nil {
			return err
		}
		return archive.CopyTree(payload, target)
	default:
		return fmt.Errorf("unknown unit kind %q", unit.Kind)
	}
}

// restoreVolume recreates the target volume from scratch and extracts
// the payload into it.
func (e *Engine) restoreVolume(name, payload string) error {
	if e.client == nil {
		return dockercli.ErrUnavailable
	}
	exists, err := e.client.VolumeExists(name)
	if err != nil {
		return err
	}
	if exists {
		if err := e.client.RemoveVolume(name); err != nil {
			return fmt.Errorf("remove volume: %w", err)
		}
	}
	if err := e.client.CreateVolume(name); err != nil {
		return fmt.Errorf("create volume: %w", err)
	}
	return e.client.ImportVolume(name, payload)
}

func (e *Engine) targetFor(unit snapshot.Unit) (string, error) {
	switch unit.Name {
	case "config":
		return e.cfg.ConfigDir, nil
	case "src":
		return e.cfg.SourceDir, nil
	case "scripts":
		return e.cfg.ScriptsDir, nil
	case "data":
		return e.cfg.DataDir, nil
	case "workspace":
		return e.cfg.WorkspaceDir, nil
	case "logs":
		return e.cfg.LogsDir, nil
	}
	return "", fmt.Errorf("no configured target for unit %q", unit.Name)
}
