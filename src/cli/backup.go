package cli

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"stackops/src/backup"
	"stackops/src/safety"
)

func newBackupCmd(stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Create one retained snapshot of the stack",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := getSafetyOptions(cmd)
			if err := safety.RequireRoot(opts); err != nil {
				return err
			}
			// Backup works without a runtime; volumes are then skipped.
			a, err := buildApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.log.Sync()
			if opts.DryRun {
				fmt.Fprintf(stdout, "dry-run: would snapshot %d volumes and the configured trees into %s\n",
					len(a.cfg.Volumes), a.cfg.BackupRoot)
				return nil
			}
			snap, err := backup.New(a.cfg, a.client, a.log, stdout).Snapshot()
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Wrote %s (%s, %d files)\n",
				snap.ArchivePath, humanize.IBytes(uint64(snap.Manifest.TotalBytes)), snap.Manifest.FileCount)
			return nil
		},
	}
}
