package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/menta2k/photobooth"
	"github.com/menta2k/photobooth/internal/config"
	"github.com/menta2k/photobooth/internal/logging"
	"github.com/menta2k/photobooth/internal/ui"
	"github.com/menta2k/photobooth/pkg/camera"
	"github.com/menta2k/photobooth/pkg/export"
)

type rootOptions struct {
	configPath string
	envFile    string
	logLevel   string
	outDir     string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	var cleanup func()

	cmd := &cobra.Command{
		Use:          "photobooth",
		Short:        "Capture photo strips into decorated templates",
		Version:      photobooth.GetVersion(),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			cleanup, err = logging.Configure(logging.Options{
				Level:       cfg.Logging.Level,
				File:        cfg.Logging.File,
				MaxBytes:    cfg.Logging.MaxBytes,
				BackupCount: cfg.Logging.BackupCount,
				Stdout:      cfg.Logging.Stdout,
			})
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if cleanup != nil {
				cleanup()
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", config.GetConfigPath(), "config file (JSON)")
	flags.StringVar(&opts.envFile, "env", ".env", "dotenv file with PHOTOBOOTH_* overrides")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug|info|warning|error")
	flags.StringVar(&opts.outDir, "out", "", "output directory (overrides config)")

	cmd.AddCommand(
		newTemplatesCmd(opts),
		newShootCmd(opts),
		newComposeCmd(opts),
		newDetectCmd(opts),
		newConfigCmd(opts),
	)
	return cmd
}

// loadConfig reads the config file and environment, then applies flags
func loadConfig(opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath, opts.envFile)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.outDir != "" {
		cfg.Output.OutputDir = opts.outDir
	}
	return cfg, nil
}

// boothOptions describes the host pieces a command needs
type boothOptions struct {
	opener camera.Opener
	share  bool
}

func openBooth(opts *rootOptions, bo boothOptions) (*photobooth.Booth, *ui.Terminal, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, nil, err
	}

	term := ui.NewTerminal(os.Stdout)
	o := photobooth.Options{
		Opener:  bo.opener,
		Display: term,
		Shutter: ui.Bell{W: os.Stdout},
		Confirm: confirm,
	}
	if bo.share {
		o.Sharer = export.NewClipboardSharer()
	}

	booth, err := photobooth.New(cfg, o)
	if err != nil {
		return nil, nil, err
	}
	return booth, term, nil
}

// confirm asks on stdin; anything but y/yes declines
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	var answer string
	if _, err := fmt.Scanln(&answer); err != nil {
		return false
	}
	return answer == "y" || answer == "Y" || answer == "yes"
}
