package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ManifestName is the manifest's filename inside a bundle.
const ManifestName = "manifest.json"

// ManifestError marks a bundle whose manifest is missing or malformed.
// Restore rejects such bundles outright.
type ManifestError struct {
	Path string
	Err  error
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("invalid snapshot manifest %s: %v", e.Path, e.Err)
}

func (e *ManifestError) Unwrap() error { return e.Err }

// WriteManifest writes m as indented JSON into dir.
func WriteManifest(dir string, m Manifest) error {
	f, err := os.Create(filepath.Join(dir, ManifestName))
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

// LoadManifest reads and validates the manifest inside dir.
func LoadManifest(dir string) (Manifest, error) {
	path := filepath.Join(dir, ManifestName)
	b, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, &ManifestError{Path: path, Err: err}
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return Manifest{}, &ManifestError{Path: path, Err: err}
	}
	if err := m.Validate(); err != nil {
		return Manifest{}, &ManifestError{Path: path, Err: err}
	}
	return m, nil
}

// Validate checks the fields restore decisions depend on.
func (m Manifest) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("missing id")
	}
	if m.CreatedAt.IsZero() {
		return fmt.Errorf("missing createdAt")
	}
	if m.SchemaVersion == "" {
		return fmt.Errorf("missing schemaVersion")
	}
	for i, u := range m.Units {
		if u.Name == "" || u.PayloadRef == "" {
			return fmt.Errorf("unit %d incomplete", i)
		}
		switch u.Kind {
		case KindVolume, KindHostDir, KindConfigTree, KindSourceTree, KindScriptTree:
		default:
			return fmt.Errorf("unit %d has unknown kind %q", i, u.Kind)
		}
	}
	return nil
}
