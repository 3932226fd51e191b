package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rnshah9/root/pkg/observability"
	"github.com/rnshah9/root/pkg/pipeline"
)

// newRenderCmd creates the render command.
//
// Usage:
//
//	normfold render model.json -n x -o model.svg
//	normfold render model.json -n x,y --format png -o model.png
func newRenderCmd() *cobra.Command {
	var (
		normSet  []string
		format   string
		output   string
		detailed bool
		noCache  bool
		cacheDir string
	)

	cmd := &cobra.Command{
		Use:   "render MODEL",
		Short: "Render the unfolded graph as DOT, SVG, or PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())

			if format == "" && output != "" {
				format = strings.TrimPrefix(filepath.Ext(output), ".")
			}
			if format == "" {
				format = pipeline.FormatSVG
			}
			if output == "" {
				base := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
				output = base + "_unfolded." + format
			}

			c, err := openCache(cacheDir, noCache)
			if err != nil {
				return fmt.Errorf("open cache: %w", err)
			}
			runner := pipeline.NewRunner(c, nil, nil, logger)
			defer runner.Close()

			spin := newSpinnerWithContext(cmd.Context(), "Rendering...")
			observability.SetPipelineHooks(stageHooks{spin: spin})
			defer observability.Reset()
			spin.Start()

			result, err := runner.Execute(cmd.Context(), pipeline.Options{
				ModelPath: args[0],
				NormSet:   normSet,
				Formats:   []string{format},
				Detailed:  detailed,
				Logger:    logger,
			})
			if err != nil {
				spin.StopWithError(fmt.Sprintf("Rendering failed: %v", err))
				return err
			}
			spin.Stop()

			if err := os.WriteFile(output, result.Artifacts[format], 0644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}

			printSuccess("Rendered %s", StyleHighlight.Render(result.Report.Top))
			printStats(result.Report.NodeCount, len(result.Report.Wrappers), result.CacheInfo.RenderHit)
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&normSet, "normset", "n", nil, "observables to normalize over (comma separated)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "output format: dot, svg, png (default from output extension)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: MODEL_unfolded.FORMAT)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include node kinds and normsets in labels")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the result cache")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "cache directory (default: user cache dir)")

	return cmd
}
