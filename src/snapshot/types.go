// Package snapshot defines the on-disk shape of one backup: the archive
// units it contains, the manifest describing them, and the retention set
// of bundles kept under the backup root.
package snapshot

import "time"

// Kind classifies one archive unit.
type Kind string

const (
	KindVolume     Kind = "container-volume"
	KindHostDir    Kind = "host-directory"
	KindConfigTree Kind = "config-tree"
	KindSourceTree Kind = "source-tree"
	KindScriptTree Kind = "script-tree"
)

// Unit is one captured resource inside a snapshot. PayloadRef is the
// path of its payload relative to the bundle root.
type Unit struct {
	Name       string `json:"name"`
	Kind       Kind   `json:"kind"`
	PayloadRef string `json:"payloadRef"`
}

// Manifest is the sole object the restore engine trusts. It is written
// last into the staging area, so a bundle without one is by definition
// incomplete and gets rejected.
type Manifest struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"createdAt"`
	SchemaVersion string    `json:"schemaVersion"`
	Units         []Unit    `json:"units"`
	FileIndex     []string  `json:"fileIndex"`

	ConfigPresent   bool `json:"configPresent"`
	SourcePresent   bool `json:"sourcePresent"`
	ScriptsPresent  bool `json:"scriptsPresent"`
	VolumesPresent  bool `json:"volumesPresent"`
	HostDirsPresent bool `json:"hostDirsPresent"`

	FileCount  int   `json:"fileCount"`
	TotalBytes int64 `json:"totalBytes"`
}

// Snapshot pairs a manifest with the bundle that holds it.
type Snapshot struct {
	Manifest    Manifest
	ArchivePath string
}

// NewID derives the snapshot identifier from its creation time. One
// backup per second per host keeps these collision-free.
func NewID(now time.Time) string {
	return now.UTC().Format("20060102-150405")
}
