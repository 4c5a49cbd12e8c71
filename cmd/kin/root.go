package main

import (
	"fmt"

	"github.com/chazu/linkage/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// rootOptions holds the global flags and the state built from them before
// any subcommand runs.
type rootOptions struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
	app    *App
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "kin",
		Short: "Forward and inverse kinematics for robot link trees",
		Long: `kin evaluates a robot description written in a small Lisp and works
with the resulting kinematic tree.

Example:
  kin fk examples/arm6.kin --angles 0.8,0.2,0,-1.2,0,0.1
  kin ik examples/arm6.kin --end wrist-link2 --target 0.1,0.1,-0.5,0,0,0`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "kin.yaml", "path to the YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		newInfoCmd(opts),
		newFKCmd(opts),
		newIKCmd(opts),
		newMeshCmd(opts),
	)
	return cmd
}

func (o *rootOptions) init() error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	o.cfg = cfg

	o.logger, err = cfg.Logging.BuildLogger(o.verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	o.app, err = NewApp(cfg, o.logger)
	return err
}
