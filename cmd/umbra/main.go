package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"umbra/pkg/eio"
	"umbra/pkg/register"
)

var (
	fConfigFile string
	fRef        string
	fAnchors    []string
	fMaxIter    int
	fVerbosity  int
)

func main() {
	root := &cobra.Command{
		Use:   "umbra",
		Short: "Registration engine for total solar eclipse exposure sequences",
	}

	registerCmd := &cobra.Command{
		Use:   "register <dir>",
		Short: "Compute moon and sun alignment transforms for every frame in a directory",
		Args:  cobra.ExactArgs(1),
		RunE:  runRegister,
	}
	registerCmd.Flags().StringVarP(&fConfigFile, "config", "c", "", "YAML config file")
	registerCmd.Flags().StringVar(&fRef, "ref", "", "reference frame filename (overrides config)")
	registerCmd.Flags().StringSliceVar(&fAnchors, "anchors", nil, "anchor frame filenames (overrides config)")
	registerCmd.Flags().IntVar(&fMaxIter, "maxiter", 0, "sun optimizer iteration cap (overrides config)")
	registerCmd.Flags().IntVarP(&fVerbosity, "verbosity", "v", 0, "how verbose to get")
	root.AddCommand(registerCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runRegister(cmd *cobra.Command, args []string) error {
	cfg := register.NewConfig()
	if fConfigFile != "" {
		b, err := os.ReadFile(fConfigFile)
		if err != nil {
			return fmt.Errorf("config %s: %w", fConfigFile, err)
		}
		if cfg, err = register.NewConfigFromYaml(b); err != nil {
			return err
		}
	}
	if fRef != "" {
		cfg.RefFilename = fRef
	}
	if len(fAnchors) > 0 {
		cfg.AnchorFilenames = fAnchors
	}
	if fMaxIter > 0 {
		cfg.MaxIter = fMaxIter
	}
	cfg.Verbosity = fVerbosity

	level := zerolog.InfoLevel
	if cfg.Verbosity > 0 {
		level = zerolog.DebugLevel
	}
	cfg.Log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	if cfg.Verbosity > 0 {
		cfg.Log.Debug().Msg("final configuration:\n" + cfg.AsYaml())
	}

	frames, err := eio.LoadDir(args[0])
	if err != nil {
		return err
	}
	cfg.Log.Info().Int("frames", len(frames)).Str("dir", args[0]).Msg("frames loaded")

	records, report, err := register.Run(cmd.Context(), cfg, frames)
	if err != nil {
		return err
	}

	for _, rec := range records {
		fmt.Printf("%s  moon%s  sun%s  group=%s\n",
			rec.Frame.Name(), rec.MoonAlign, rec.SunAlign, rec.Frame.GroupKey)
	}
	for _, ff := range report.Failures {
		cfg.Log.Warn().Msg(ff.String())
	}
	for _, name := range report.NonConverged {
		cfg.Log.Warn().Str("frame", name).Msg("sun alignment did not converge; result kept")
	}
	return nil
}
