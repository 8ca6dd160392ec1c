package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mrsinham/randimage/internal/pipeline"
)

// version is set at build time via -ldflags
var version = "dev"

// started is set once flags and arguments were accepted; errors before that
// point are usage errors raised by cobra itself.
var started bool

var rootCmd = &cobra.Command{
	Use:   "randimage",
	Short: "Generate seedable random images",
	Long: `randimage fills images with random samples from a seeded generator and
writes them as PNG, BMP, TIFF or DICOM. The same seed always produces the
same bytes.

Exit codes:
  0  success
  1  output could not be written
  2  invalid arguments
  3  internal error`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		started = true
		verbose, _ := cmd.Flags().GetBool("verbose")
		quiet, _ := cmd.Flags().GetBool("quiet")
		if verbose && quiet {
			return usageError(errors.New("--verbose and --quiet are mutually exclusive"))
		}
		slog.SetDefault(newLogger(verbose, quiet))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Load settings from a YAML file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug details")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Only log warnings and errors")
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if !started {
			os.Exit(pipeline.ExitUsage)
		}
		os.Exit(pipeline.ExitCode(err))
	}
}

func newLogger(verbose, quiet bool) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case verbose:
		level = slog.LevelDebug
	case quiet:
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// usageError marks err as fixable by changing arguments.
func usageError(err error) error {
	if err == nil || errors.Is(err, pipeline.ErrUsage) {
		return err
	}
	return fmt.Errorf("%w: %w", pipeline.ErrUsage, err)
}
