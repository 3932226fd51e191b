package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rnshah9/root/pkg/graph"
	"github.com/rnshah9/root/pkg/observability"
	"github.com/rnshah9/root/pkg/pipeline"
)

// newUnfoldCmd creates the unfold command.
//
// Usage:
//
//	normfold unfold model.json -n x,y
//	normfold unfold model.toml -n x -f json,svg -o out/
func newUnfoldCmd() *cobra.Command {
	var (
		normSet  []string
		formats  []string
		outDir   string
		detailed bool
		noCache  bool
		refresh  bool
		cacheDir string
	)

	cmd := &cobra.Command{
		Use:   "unfold MODEL",
		Short: "Unfold normalization integrals and report the substitutions",
		Long: `Unfold loads a model file (JSON or TOML), wraps every density that
carries a normalization set in a synthetic normalized node, and reports
the substitutions. Requested artifacts are written to the output
directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())

			c, err := openCache(cacheDir, noCache)
			if err != nil {
				return fmt.Errorf("open cache: %w", err)
			}
			runner := pipeline.NewRunner(c, nil, nil, logger)
			defer runner.Close()

			spin := newSpinnerWithContext(cmd.Context(), "Unfolding integrals...")
			observability.SetPipelineHooks(stageHooks{spin: spin})
			defer observability.Reset()
			spin.Start()

			prog := newProgress(logger)
			result, err := runner.Execute(cmd.Context(), pipeline.Options{
				ModelPath: args[0],
				NormSet:   normSet,
				Formats:   formats,
				Detailed:  detailed,
				Refresh:   refresh,
				Logger:    logger,
			})
			if err != nil {
				spin.StopWithError(fmt.Sprintf("Unfolding failed: %v", err))
				return err
			}
			spin.Stop()
			prog.done(fmt.Sprintf("Unfolded %d densities", len(result.Report.Wrappers)))

			printReport(result)

			if err := writeArtifacts(result, args[0], outDir); err != nil {
				return err
			}

			if len(result.Report.Wrappers) > 0 {
				printNewline()
				printNextStep("Inspect the unfolded graph",
					fmt.Sprintf("normfold inspect %s -n %s", args[0], strings.Join(normSet, ",")))
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&normSet, "normset", "n", nil, "observables to normalize over (comma separated)")
	cmd.Flags().StringSliceVarP(&formats, "format", "f", []string{pipeline.FormatJSON}, "output formats: json, dot, svg, png")
	cmd.Flags().StringVarP(&outDir, "output", "o", "", "directory for artifact files (default: no files)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include node kinds and normsets in DOT labels")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the result cache")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass cached results")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "cache directory (default: user cache dir)")

	return cmd
}

// printReport shows the unfolding summary.
func printReport(result *pipeline.Result) {
	rep := result.Report
	printSuccess("Top node: %s", StyleHighlight.Render(rep.Top))
	printStats(rep.NodeCount, len(rep.Wrappers), result.CacheInfo.UnfoldHit)

	for _, w := range rep.Wrappers {
		printDetail("%s %s %s  norm %s", w.Wraps, iconArrow, w.ID, graph.NormSet(w.NormSet).String())
	}
}

// writeArtifacts writes every rendered artifact next to the model name in
// outDir. Nothing is written when outDir is empty.
func writeArtifacts(result *pipeline.Result, modelPath, outDir string) error {
	if outDir == "" {
		return nil
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(modelPath), filepath.Ext(modelPath))
	for format, data := range result.Artifacts {
		path := filepath.Join(outDir, base+"_unfolded."+format)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		printFile(path)
	}
	return nil
}
