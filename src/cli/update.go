package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"stackops/src/backup"
	"stackops/src/health"
	"stackops/src/safety"
	"stackops/src/update"
)

func newUpdateCmd(stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Run the full update pipeline: backup, rebuild, migrate, restart, verify",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := getSafetyOptions(cmd)
			if err := safety.RequireRoot(opts); err != nil {
				return err
			}
			// Updating is meaningless without a reachable runtime.
			a, err := buildApp(cmd, true)
			if err != nil {
				return err
			}
			defer a.log.Sync()
			if opts.DryRun {
				fmt.Fprintln(stdout, "dry-run: would back up, rebuild images, migrate, restart, and verify health")
				return nil
			}
			bk := backup.New(a.cfg, a.client, a.log, stdout)
			machine := newMachine(a, stdout)
			prober := health.NewProber(a.client, a.cfg.ProbeTimeout())
			orch := update.New(a.cfg, a.client, bk, machine, prober, a.log, stdout)
			report, err := orch.Run(confirmFunc(opts, stdout))
			if err != nil {
				return err
			}
			renderHealth(stdout, report.Health)
			// Unreachable services are reported above, not an error.
			return nil
		},
	}
}

func renderHealth(out io.Writer, records []health.Record) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SERVICE\tSTATUS\tCHECKED")
	for _, r := range records {
		status := "reachable"
		if !r.Reachable {
			status = "UNREACHABLE"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Service, status, r.CheckedAt.Format("15:04:05"))
	}
	tw.Flush()
}
