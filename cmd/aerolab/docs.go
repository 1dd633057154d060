package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/aerolab/internal/domain/batch"
	"github.com/kailas-cloud/aerolab/internal/usecase/docindex"
	"github.com/kailas-cloud/aerolab/internal/usecase/docsplit"
	"github.com/kailas-cloud/aerolab/internal/usecase/docstats"
	"github.com/kailas-cloud/aerolab/internal/usecase/usage"
)

func newDocsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Split, index, search and measure the library documentation",
	}
	cmd.AddCommand(
		newDocsSplitCmd(a),
		newDocsIndexCmd(a),
		newDocsSearchCmd(a),
		newDocsStatsCmd(a),
		newDocsUsageCmd(a),
	)
	return cmd
}

func (a *app) docsDir(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return a.cfg.Paths.CleanDocsDir
}

func newDocsSplitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "split [input] [output-dir]",
		Short: "Cut an API reference dump into one file per class, method and function",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := docsplit.DefaultInput
			if len(args) > 0 {
				in = args[0]
			}
			outDir := a.cfg.Paths.CleanDocsDir
			if len(args) > 1 {
				outDir = args[1]
			}

			report, err := docsplit.New(a.logger).Split(cmd.Context(), in, outDir)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, warn := range report.Warnings {
				printWarn(cmd.ErrOrStderr(), fmt.Sprintf("Warning: line %d: %s", warn.Line, warn.Message))
			}
			printTitle(w, "Split "+in+" into "+outDir)
			fmt.Fprintln(w, report.String())
			return nil
		},
	}
}

func newDocsIndexCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "index [clean-docs-dir]",
		Short: "Embed split documentation files into the vector index",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, _, err := a.docIndex(cmd.Context())
			if err != nil {
				return err
			}
			dir := a.docsDir(args)
			results, err := svc.IndexDir(cmd.Context(), dir)
			if err != nil {
				return err
			}

			sum := batch.Summarize(results)
			w := cmd.OutOrStdout()
			printTitle(w, "Indexed "+dir)
			printKV(w, [][2]string{
				{"documents", humanize.Comma(int64(sum.Items))},
				{"ok", humanize.Comma(int64(sum.OK))},
				{"failed", humanize.Comma(int64(sum.Failed))},
				{"chunks", humanize.Comma(int64(sum.Parts))},
			})
			if sum.Failed == 0 {
				return nil
			}
			for _, r := range results {
				if r.Status() == batch.StatusError {
					a.logger.Warn("document not indexed", zap.String("file", r.Label()), zap.Error(r.Err()))
				}
			}
			return fmt.Errorf("%d of %d documents failed: %w", sum.Failed, sum.Items, batch.Join(results))
		},
	}
}

func newDocsSearchCmd(a *app) *cobra.Command {
	var k int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find the documentation most relevant to a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, _, err := a.docIndex(cmd.Context())
			if err != nil {
				return err
			}
			matches, err := svc.Search(cmd.Context(), strings.Join(args, " "), k)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(matches) == 0 {
				printWarn(w, "No matching documentation found.")
				return nil
			}
			for i, m := range matches {
				md := m.Document.Metadata
				printTitle(w, fmt.Sprintf("%d. %s (%s, score %.3f)", i+1, md.FullName, md.Type, m.Score))
				printBox(w, m.Document.Content)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&k, "top", "k", docindex.DefaultK, "number of documents to return")
	return cmd
}

func newDocsStatsCmd(a *app) *cobra.Command {
	var (
		plot string
		bins int
	)
	cmd := &cobra.Command{
		Use:   "stats [clean-docs-dir]",
		Short: "Count tokens per documentation file and plot the distribution",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			counter, err := a.tokenCounter(cmd.Context())
			if err != nil {
				return err
			}
			dir := a.docsDir(args)
			st, err := docstats.New(counter, a.logger).
				WithConcurrency(a.cfg.Tokens.Concurrency).
				Analyze(cmd.Context(), dir)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, name := range st.Failed {
				printWarn(cmd.ErrOrStderr(), "Skipped "+name)
			}
			printTitle(w, "Token statistics for "+dir)
			fmt.Fprintln(w, st.Summary.String())

			if plot == "" || st.Documents == 0 {
				return nil
			}
			if err := docstats.SaveHistogram(plot, st.Counts(), bins); err != nil {
				return err
			}
			printSuccess(w, "Histogram saved to "+plot)
			return nil
		},
	}
	cmd.Flags().StringVar(&plot, "plot", docstats.DefaultHistogramPNG, "histogram output path, empty to skip")
	cmd.Flags().IntVar(&bins, "bins", docstats.DefaultBins, "histogram bins")
	return cmd
}

func newDocsUsageCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show embedding tokens spent today and this month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.usage(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			printTitle(w, "Embedding usage ("+a.cfg.Embedding.Provider+")")
			for _, p := range []usage.Period{usage.PeriodDay, usage.PeriodMonth} {
				r := svc.GetReport(cmd.Context(), p)
				if r.Exhausted {
					printWarn(w, r.String())
					continue
				}
				fmt.Fprintln(w, r.String())
			}
			return nil
		},
	}
}
