package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"jobsh/internal/config"
	"jobsh/internal/prompt"
	"jobsh/internal/shell"
)

var (
	cfgPath  string
	command  string
	logLevel string

	exitStatus int
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "jobsh",
	Short:         "A small job-control shell",
	Long:          `jobsh runs pipelines, redirections and background jobs and tracks them in a job table.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(afero.NewOsFs(), cfgPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
			if err := cfg.Validate(); err != nil {
				return err
			}
		}

		if !cfg.Color || !term.IsTerminal(int(os.Stderr.Fd())) {
			color.NoColor = true
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGHUP)
		defer stop()

		sh := shell.New(cfg, os.Stdin, os.Stdout, os.Stderr, logger)
		sh.Start()
		defer sh.Close()

		if cmd.Flags().Changed("command") {
			exitStatus = sh.Execute(ctx, []byte(command))
			sh.Jobs.Drain()
			return nil
		}

		reader, err := prompt.NewReader(os.Stdin, os.Stdout, cfg.HistoryLimit)
		if err != nil {
			return err
		}
		defer reader.Close()

		if err := sh.Run(ctx, reader); err != nil && ctx.Err() == nil {
			return err
		}
		exitStatus = sh.Status()
		return nil
	},
}

// Execute runs the root command and returns the process exit status.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "jobsh:", err)
		return 1
	}
	return exitStatus
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "jobsh", config.ConfigurationName)
}

func init() {
	rootCmd.Flags().StringVar(&cfgPath, "config", defaultConfigPath(), "config file or directory")
	rootCmd.Flags().StringVarP(&command, "command", "c", "", "run one command line and exit with its status")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "override log_level: debug, info, warn or error")
}
