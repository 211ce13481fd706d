package main

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/pop-os/debrepbuild/pkg/config"
	"github.com/pop-os/debrepbuild/pkg/debian"
	"github.com/pop-os/debrepbuild/pkg/pool"
	"github.com/pop-os/debrepbuild/pkg/repo"
)

func rootCmd() *cobra.Command {
	var (
		verbose    bool
		configPath string
		root       string
	)
	cmd := &cobra.Command{
		Use:          "debrepbuild",
		Short:        "Build and maintain a Debian package repository",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
				Level:      level,
				TimeFormat: time.Kitchen,
			})))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "sources.toml", "repository configuration file")
	cmd.PersistentFlags().StringVarP(&root, "root", "r", ".", "repository root holding pool/ and dists/")

	cmd.AddCommand(generateCmd(&configPath, &root))
	cmd.AddCommand(migrateCmd(&configPath, &root))
	cmd.AddCommand(poolCmd(&configPath, &root))
	return cmd
}

func generateCmd(configPath, root *string) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Generate the dists index tree from the pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return repo.NewPipeline(cfg, *root).Build(cmd.Context())
		},
	}
}

func migrateCmd(configPath, root *string) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "migrate <package>",
		Short: "Move a package between components, then regenerate indices",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			moved, err := pool.Migrate(*root, cfg.Archive, args[0], debian.Component(from), debian.Component(to))
			if err != nil {
				return err
			}
			slog.Info("migrated package",
				slog.String("package", args[0]),
				slog.Int("files", moved),
			)
			return repo.NewPipeline(cfg, *root).Build(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "component to move the package out of")
	cmd.Flags().StringVar(&to, "to", "", "component to move the package into")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func poolCmd(configPath, root *string) *cobra.Command {
	var component string
	var move bool
	cmd := &cobra.Command{
		Use:   "pool <dir>",
		Short: "Place built artifacts from a directory into the pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			comp := cfg.DefaultComponent
			if component != "" {
				comp = debian.Component(component)
			}

			return filepath.WalkDir(args[0], func(path string, d fs.DirEntry, err error) error {
				if err != nil || d.IsDir() {
					return err
				}
				if _, err := pool.Place(*root, cfg.Archive, comp, path, move); err != nil {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&component, "component", "", "pool component (defaults to the configured default)")
	cmd.Flags().BoolVar(&move, "move", false, "move artifacts instead of copying")
	return cmd
}
