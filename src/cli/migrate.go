package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"stackops/src/backup"
	"stackops/src/migrate"
	"stackops/src/safety"
)

func newMigrateCmd(stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Migrate persisted stack state to the current version",
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
			machine := newMachine(a, stdout)
			if opts.DryRun {
				current, err := machine.Current()
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout, "dry-run: current version %s\n", current)
				return nil
			}
			outcome, err := machine.Apply(confirmFunc(opts, stdout))
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Migration %s: %s -> %s\n", outcome.Action, outcome.From, outcome.To)
			return nil
		},
	}
}

func newMachine(a *app, stdout io.Writer) *migrate.Machine {
	bk := backup.New(a.cfg, a.client, a.log, stdout)
	return migrate.New(a.cfg, a.client, bk, a.log, stdout)
}

// confirmFunc adapts the safety prompt into the migration machine's
// confirmation hook.
func confirmFunc(opts safety.Options, stdout io.Writer) func(string) (bool, error) {
	return func(question string) (bool, error) {
		return safety.Confirm(opts, os.Stdin, stdout, question)
	}
}
