package main

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/aerolab/internal/usecase/airplane"
)

func newPlaneCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plane",
		Short: "Create, save and analyze airplanes",
	}
	cmd.AddCommand(newPlaneInitCmd(a), newPlaneCreateCmd(a), newPlaneAnalyzeCmd(a))
	return cmd
}

func newPlaneInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write the default airplane.yaml and operating-point.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo := a.planeFiles()
			if err := repo.Reset(); err != nil {
				return err
			}
			a.logger.Info("plane files reset", zap.String("dir", a.cfg.Paths.PlaneDir))
			out := cmd.OutOrStdout()
			printSuccess(out, "Plane definition written")
			printKV(out, [][2]string{
				{"airplane", repo.AirplanePath()},
				{"operating", repo.OperatingPointPath()},
			})
			return nil
		},
	}
}

func newPlaneCreateCmd(a *app) *cobra.Command {
	var def airplane.Definition
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Build a wing from per-station arrays and save the airplane",
		Example: `  aerolab plane create --span 10 --ys 0,0.5,1 --chords 1,0.8,0.4 --twists 2,1,0
  aerolab plane create --span 8 --ys 0,1 --chords 1,1 --twists 0,0 --heave 0,0.1 -o flexed`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := cmd.Flags()
			if !f.Changed("offsets") {
				def.Offsets = nil
			}
			if !f.Changed("heave") {
				def.HeaveDisplacements = nil
			}
			if !f.Changed("twist-disp") {
				def.TwistDisplacements = nil
			}

			sum, err := a.airplanes().Create(cmd.Context(), def)
			if err != nil {
				printError(cmd.ErrOrStderr(), airplane.ErrorText(err))
				return errReported
			}
			printBox(cmd.OutOrStdout(), sum.String())
			return nil
		},
	}

	f := cmd.Flags()
	f.Float64Var(&def.Span, "span", 0, "wing span in meters")
	f.Float64SliceVar(&def.YsOverHalfSpan, "ys", nil, "span stations as fractions of the half span, 0..1")
	f.Float64SliceVar(&def.Chords, "chords", nil, "chord per station in meters")
	f.Float64SliceVar(&def.Twists, "twists", nil, "twist per station in degrees")
	f.Float64SliceVar(&def.Offsets, "offsets", nil, "leading-edge offset per station as a fraction of chord (default -0.25)")
	f.Float64SliceVar(&def.HeaveDisplacements, "heave", nil, "heave displacement per station in meters")
	f.Float64SliceVar(&def.TwistDisplacements, "twist-disp", nil, "twist displacement per station in degrees")
	f.StringVarP(&def.OutputFilename, "output", "o", airplane.DefaultOutputFilename, "output file, .json is appended when missing")
	for _, name := range []string{"span", "ys", "chords", "twists"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newPlaneAnalyzeCmd(a *app) *cobra.Command {
	req := airplane.DefaultAnalyzeRequest("")
	cmd := &cobra.Command{
		Use:   "analyze [airplane.json]",
		Short: "Run a vortex-lattice analysis on a saved airplane",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				req.Path = args[0]
			}
			if req.Resolution.Chordwise < 1 || req.Resolution.Spanwise < 1 {
				return errors.New("chordwise and spanwise must be at least 1")
			}
			res, err := a.airplanes().Analyze(cmd.Context(), req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printTitle(out, res.Path)
			printBox(out, res.String())
			return nil
		},
	}

	f := cmd.Flags()
	f.Float64Var(&req.Velocity, "velocity", req.Velocity, "freestream velocity in m/s")
	f.Float64Var(&req.Alpha, "alpha", req.Alpha, "angle of attack in degrees")
	f.IntVar(&req.Resolution.Chordwise, "chordwise", req.Resolution.Chordwise, "chordwise panels")
	f.IntVar(&req.Resolution.Spanwise, "spanwise", req.Resolution.Spanwise, "spanwise panels per section")
	return cmd
}
