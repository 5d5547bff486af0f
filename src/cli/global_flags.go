package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"stackops/src/config"
	"stackops/src/dockercli"
	"stackops/src/safety"
)

// addGlobalFlags adds the persistent flags shared by every subcommand.
func addGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("config", "", "Config file path (default "+config.DefaultPath+")")
	cmd.PersistentFlags().Bool("dry-run", false, "Show planned actions without making changes")
	cmd.PersistentFlags().BoolP("yes", "y", false, "Assume 'yes' to prompts and run non-interactively")
	cmd.PersistentFlags().Bool("force", false, "Skip the root-privilege check")
	cmd.PersistentFlags().Bool("json-log", false, "Emit structured JSON logs")
	cmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
}

// getSafetyOptions reads the global flags into a safety.Options.
func getSafetyOptions(cmd *cobra.Command) safety.Options {
	flags := cmd.Root().PersistentFlags()
	dry, _ := flags.GetBool("dry-run")
	yes, _ := flags.GetBool("yes")
	force, _ := flags.GetBool("force")
	return safety.Options{DryRun: dry, Yes: yes, Force: force}
}

// buildLogger constructs the zap logger per the global logging flags.
func buildLogger(cmd *cobra.Command) (*zap.SugaredLogger, error) {
	flags := cmd.Root().PersistentFlags()
	jsonLog, _ := flags.GetBool("json-log")
	levelStr, _ := flags.GetString("log-level")

	level, err := zapcore.ParseLevel(levelStr)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q", levelStr)
	}
	var zcfg zap.Config
	if jsonLog {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	return logger.Sugar(), nil
}

// app bundles what every command needs: config, logger, and (when one
// is reachable) the container runtime client.
type app struct {
	cfg    *config.Config
	client dockercli.Client
	log    *zap.SugaredLogger
}

// buildApp loads config, builds the logger, and connects to the
// runtime. With requireRuntime false an unreachable runtime degrades to
// a nil client instead of failing, matching the backup engine's
// fresh-host contract.
func buildApp(cmd *cobra.Command, requireRuntime bool) (*app, error) {
	flags := cmd.Root().PersistentFlags()
	cfgPath, _ := flags.GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	log, err := buildLogger(cmd)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log}
	client, err := dockercli.Connect(context.Background(), cfg.StackDir, cfg.ComposeFile)
	if err != nil {
		if requireRuntime {
			return nil, err
		}
		log.Infow("container runtime unavailable, continuing without it", "error", err)
	} else {
		a.client = client
	}
	return a, nil
}
