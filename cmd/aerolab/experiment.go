package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/aerolab/internal/usecase/experiment"
	"github.com/kailas-cloud/aerolab/internal/usecase/workflow"
)

func newExperimentCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "experiment",
		Short: "Run or generate wing optimization experiments",
	}
	cmd.AddCommand(newExperimentRunCmd(a), newExperimentGenerateCmd(a))
	return cmd
}

func (a *app) defaultReportPath() string {
	return filepath.Join(a.cfg.Paths.ResultsDir, filepath.Base(experiment.DefaultOutputPath))
}

// specFor maps an experiment id to <experiments>/<id>.yaml when that file
// exists. The default id without a file runs the reference experiment.
func (a *app) specFor(id string) (string, error) {
	path := filepath.Join(a.cfg.Paths.ExperimentsDir, id+".yaml")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if id == experiment.DefaultID {
		return "", nil
	}
	return "", fmt.Errorf("experiment %q not found in %s", id, a.cfg.Paths.ExperimentsDir)
}

func newExperimentRunCmd(a *app) *cobra.Command {
	var (
		specPath string
		noReset  bool
	)
	cmd := &cobra.Command{
		Use:   "run [experiment-id] [output-path]",
		Short: "Optimize the plane definition against an experiment",
		Long: `Runs an optimization experiment against the files in the plane directory,
writes the optimized values back, and saves a Markdown report plus a chord
distribution plot next to it.

Without --spec the id selects experiments/<id>.yaml; "default" with no such
file runs the built-in elliptical-wing experiment.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := experiment.Request{
				ID:         experiment.DefaultID,
				OutputPath: a.defaultReportPath(),
				Reset:      !noReset,
			}
			if len(args) > 0 {
				req.ID = args[0]
			}
			if len(args) > 1 {
				req.OutputPath = args[1]
			}
			req.SpecPath = specPath
			if req.SpecPath == "" {
				p, err := a.specFor(req.ID)
				if err != nil {
					return err
				}
				req.SpecPath = p
			}

			out, err := a.experiments().Run(cmd.Context(), req)
			if err != nil {
				return err
			}
			printOutcome(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&specPath, "spec", "", "experiment document to run instead of the one named by id")
	cmd.Flags().BoolVar(&noReset, "no-reset", false, "start from the current plane files instead of the defaults")
	return cmd
}

func newExperimentGenerateCmd(a *app) *cobra.Command {
	var (
		description string
		output      string
		noReset     bool
	)
	cmd := &cobra.Command{
		Use:   "generate [experiment-id]",
		Short: "Have the LLM write an experiment from a description, then run it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if description == "" && stdinIsTerminal() {
				d, err := promptDescription()
				if err != nil {
					return err
				}
				description = d
			}
			if description == "" {
				return workflow.ErrNoDescription
			}

			gen, err := a.newGenerator(cmd.Context())
			if err != nil {
				return err
			}

			p := a.cfg.Paths
			paths := workflow.DefaultPaths()
			paths.VariablesPrompt = filepath.Join(p.PromptsDir, filepath.Base(paths.VariablesPrompt))
			paths.ConstraintsPrompt = filepath.Join(p.PromptsDir, filepath.Base(paths.ConstraintsPrompt))
			paths.Template = filepath.Join(p.ExperimentsDir, filepath.Base(paths.Template))
			paths.ExperimentsDir = p.ExperimentsDir

			req := workflow.Request{
				Description: description,
				OutputPath:  output,
				NoReset:     noReset,
			}
			if len(args) == 1 {
				req.ID = args[0]
			}

			res := workflow.New(gen, a.experiments(), paths, a.logger).Run(cmd.Context(), req)

			w := cmd.OutOrStdout()
			printTitle(w, "Experiment "+res.ID)
			for _, m := range res.Messages {
				fmt.Fprintln(w, roleStyle.Render("["+m.Role+"]"), m.Content)
			}
			if !res.Succeeded() {
				printError(cmd.ErrOrStderr(), "Experiment did not complete")
				return errReported
			}
			fmt.Fprintln(w)
			printOutcome(w, *res.Run)
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "plain-language experiment description (prompted when omitted)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "report path (default "+experiment.DefaultOutputPath+")")
	cmd.Flags().BoolVar(&noReset, "no-reset", false, "start from the current plane files instead of the defaults")
	return cmd
}

func printOutcome(w io.Writer, o experiment.Outcome) {
	status := successStyle.Render("feasible")
	if !o.Feasible() {
		status = warnStyle.Render("infeasible")
	}
	printTitle(w, "Experiment "+o.ID+" finished")
	printKV(w, [][2]string{
		{"status", status},
		{"method", fmt.Sprintf("%s (%d evaluations)", o.Method, o.Evaluations)},
		{"objective", fmt.Sprintf("%s %s = %.6g", o.Spec.Objective.Sense, o.Spec.Objective.Quantity, o.Objective)},
		{"violation", fmt.Sprintf("%.3g", o.MaxViolation)},
		{"CL / CD", fmt.Sprintf("%.4f / %.5f", o.Aero.CL, o.Aero.CD)},
		{"area / span", fmt.Sprintf("%.4f m^2 / %.3f m", o.Area, o.Span)},
		{"report", o.ReportPath},
		{"plot", o.PlotPath},
	})
}
