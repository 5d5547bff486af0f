package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"stackops/src/backup"
	"stackops/src/health"
	"stackops/src/monitor"
	"stackops/src/update"
)

func newMonitorCmd(stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Live status dashboard with single-key stack commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := getSafetyOptions(cmd)
			a, err := buildApp(cmd, true)
			if err != nil {
				return err
			}
			defer a.log.Sync()
			prober := health.NewProber(a.client, a.cfg.ProbeTimeout())
			loop := monitor.New(a.cfg, a.client, prober, a.log, os.Stdin, stdout)
			loop.Backup = func() error {
				_, err := backup.New(a.cfg, a.client, a.log, stdout).Snapshot()
				return err
			}
			loop.Update = func() error {
				bk := backup.New(a.cfg, a.client, a.log, stdout)
				machine := newMachine(a, stdout)
				orch := update.New(a.cfg, a.client, bk, machine, prober, a.log, stdout)
				report, err := orch.Run(confirmFunc(opts, stdout))
				if err != nil {
					return err
				}
				renderHealth(stdout, report.Health)
				return nil
			}
			return loop.Run()
		},
	}
}
