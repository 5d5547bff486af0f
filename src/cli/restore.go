package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"stackops/src/restore"
	"stackops/src/safety"
)

func newRestoreCmd(stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <archive>",
		Short: "Restore a snapshot archive, overwriting live stack state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := getSafetyOptions(cmd)
			if err := safety.RequireRoot(opts); err != nil {
				return err
			}
			a, err := buildApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.log.Sync()
			if opts.DryRun {
				fmt.Fprintf(stdout, "dry-run: would stop the stack and restore %s\n", args[0])
				return nil
			}
			ok, err := safety.Confirm(opts, os.Stdin, stdout,
				fmt.Sprintf("Restore %s? This irreversibly overwrites live volumes and directories", args[0]))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(stdout, "Restore aborted")
				return nil
			}
			result, err := restore.New(a.cfg, a.client, a.log, stdout).Restore(args[0])
			if err != nil {
				return err
			}
			if failed := result.Failed(); len(failed) > 0 {
				fmt.Fprintf(stdout, "Restore finished degraded: %d of %d units failed\n",
					len(failed), len(result.Units))
				for _, u := range failed {
					fmt.Fprintf(stdout, "  %s (%s): %v\n", u.Unit.Name, u.Unit.Kind, u.Err)
				}
			} else {
				fmt.Fprintf(stdout, "Restored snapshot %s in full\n", result.Manifest.ID)
			}
			fmt.Fprintln(stdout, "The stack was not restarted; run it when ready")
			return nil
		},
	}
}
