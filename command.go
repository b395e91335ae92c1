package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"webpix/codec"
	"webpix/logger"

	"github.com/spf13/cobra"
)

type Config struct {
	InputPath  string
	OutputDir  string
	WorkDir    string
	Format     codec.Format
	Quality    int
	MaxWidth   int
	Workers    int
	Timeout    time.Duration
	ReportPath string
	Progress   bool
	Verbose    bool
	LogJSON    bool
	NoColor    bool
}

var (
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

const defaultOutputDir = "exported"

type cliFlags struct {
	webp    bool
	jpeg    bool
	out     string
	version bool
}

func newRootCommand() *cobra.Command {
	cfg := &Config{}
	flags := &cliFlags{}

	cmd := &cobra.Command{
		Use:           "webpix <inputPath>",
		Short:         "Compress images to WebP or JPEG",
		Long:          "Convert a JPEG/PNG/TIFF image, or every image directly inside a folder,\nto WebP (default) or JPEG, shrinking anything wider than --max-width.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			console := cfg.newConsole(cmd)

			if flags.version {
				console.Box("webpix version information", fmt.Sprintf(
					"Version: %s\nBuild date: %s\nGit commit: %s",
					Version, BuildDate, GitCommit,
				))
				return nil
			}

			if len(args) == 0 {
				return errors.New("missing required argument 'inputPath'")
			}

			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("error reading working directory: %w", err)
			}

			if err := cfg.finalize(args[0], flags, cwd); err != nil {
				return err
			}

			return run(cmd.Context(), cfg, console)
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&flags.webp, "webp", "w", false, "Convert to WebP format (default)")
	f.BoolVarP(&flags.jpeg, "jpeg", "j", false, "Convert to JPEG format")
	f.IntVarP(&cfg.Quality, "quality", "q", 70, "Image quality (1-100)")
	f.IntVarP(&cfg.MaxWidth, "max-width", "m", 1600, "Resize to max width in pixels")
	f.StringVarP(&flags.out, "out", "o", defaultOutputDir, "Output folder, relative to the current directory")
	f.IntVar(&cfg.Workers, "workers", runtime.NumCPU(), "Number of concurrent conversions")
	f.DurationVar(&cfg.Timeout, "timeout", 0, "Per-image timeout, e.g. 30s (0 disables)")
	f.StringVar(&cfg.ReportPath, "report", "", "Write a JSON run report to this file")
	f.BoolVar(&cfg.Progress, "progress", false, "Show a progress bar on stderr")
	f.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Debug logging with timestamps")
	f.BoolVar(&cfg.LogJSON, "log-json", false, "Emit log records as JSON")
	f.BoolVar(&cfg.NoColor, "no-color", false, "Disable coloured output")
	f.BoolVar(&flags.version, "version", false, "Show version information")
	cmd.MarkFlagsMutuallyExclusive("webp", "jpeg")

	return cmd
}

func (cfg *Config) newConsole(cmd *cobra.Command) *logger.Console {
	opts := logger.DefaultOptions()
	if cfg.Verbose {
		opts = logger.VerboseOptions()
	}
	opts.EnableJSON = cfg.LogJSON
	opts.EnableColors = !cfg.NoColor
	opts.Output = cmd.OutOrStdout()
	opts.ErrOutput = cmd.ErrOrStderr()
	return logger.NewConsole(opts)
}

// formatName maps the format switches to a name; WebP is the default.
func (f *cliFlags) formatName() string {
	if f.jpeg {
		return "jpeg"
	}
	return "webp"
}

// finalize fills the fields derived from positional arguments and flags and
// validates the result. Relative output and report paths resolve against cwd.
func (cfg *Config) finalize(input string, flags *cliFlags, cwd string) error {
	cfg.InputPath = input
	cfg.WorkDir = cwd

	format, err := codec.ParseFormat(flags.formatName())
	if err != nil {
		return err
	}
	cfg.Format = format

	out := flags.out
	if out == "" {
		out = defaultOutputDir
	}
	cfg.OutputDir = resolvePath(cwd, out)

	if cfg.ReportPath != "" {
		cfg.ReportPath = resolvePath(cwd, cfg.ReportPath)
	}

	return cfg.validate()
}

func resolvePath(cwd, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(cwd, p)
}

func (cfg *Config) validate() error {
	if err := cfg.EncodingOptions().Validate(); err != nil {
		return fmt.Errorf("error: %w", err)
	}
	if cfg.Workers < 1 {
		return fmt.Errorf("error: workers must be at least 1")
	}
	if cfg.Timeout < 0 {
		return fmt.Errorf("error: timeout must not be negative")
	}
	return nil
}

func (cfg *Config) EncodingOptions() codec.Options {
	return codec.Options{
		Format:   cfg.Format,
		Quality:  cfg.Quality,
		MaxWidth: cfg.MaxWidth,
	}
}

func run(ctx context.Context, cfg *Config, console *logger.Console) error {
	if ctx == nil {
		ctx = context.Background()
	}

	encoder, err := codec.NewEncoder(cfg.EncodingOptions())
	if err != nil {
		return err
	}

	processor := NewProcessor(cfg, console, encoder)

	report, err := processor.ProcessPath(ctx, cfg.InputPath)
	if errors.Is(err, errEmptyInput) {
		return nil
	}
	if err != nil {
		return err
	}

	if cfg.ReportPath != "" {
		if err := report.WriteFile(cfg.ReportPath); err != nil {
			return err
		}
		console.Debug("report written", "path", cfg.ReportPath, "run_id", report.RunID)
	}

	return ctx.Err()
}
