package cli

import (
	"errors"
	"slices"

	"github.com/spf13/cobra"

	"github.com/rnshah9/root/pkg/modelio"
	"github.com/rnshah9/root/pkg/norm"
)

// newCheckCmd creates the check command.
//
// Check opens a session against the model and reports the per-density
// normalization-set assignments without producing artifacts. A conflict is
// reported with both requesting clients and exits non-zero.
func newCheckCmd() *cobra.Command {
	var normSet []string

	cmd := &cobra.Command{
		Use:   "check MODEL",
		Short: "Validate a model and detect conflicting normalization sets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())

			model, err := modelio.ReadFile(args[0])
			if err != nil {
				return err
			}
			g, err := modelio.ToGraph(model)
			if err != nil {
				printError("Model is invalid: %v", err)
				return err
			}
			if err := g.Validate(); err != nil {
				printError("Model graph is not a DAG: %v", err)
				return err
			}
			logger.Debug("model valid", "nodes", g.NodeCount(), "edges", g.EdgeCount())

			sess, err := norm.OpenArgs(g, norm.Top(model.Top), norm.NormSet(normSet...))
			if err != nil {
				var conflict *norm.ConflictError
				if errors.As(err, &conflict) {
					printError("Conflicting normalization sets for %s", StyleHighlight.Render(conflict.NodeID))
					printDetail("%s requested by %q", conflict.Requested, conflict.RequestedBy)
					printDetail("%s first requested by %q", conflict.Existing, conflict.FirstBy)
				}
				return err
			}
			defer sess.Close()

			printSuccess("Model %s unfolds cleanly", StyleHighlight.Render(model.Top))

			assignments := sess.NormSets()
			ids := make([]string, 0, len(assignments))
			for id := range assignments {
				if n, ok := g.Node(id); ok && n.IsDensity() {
					ids = append(ids, id)
				}
			}
			slices.Sort(ids)
			for _, id := range ids {
				printDetail("%-20s norm %s", id, assignments[id].String())
			}
			if len(sess.Created()) > 0 {
				printNewline()
				printInfo("%d densities would be wrapped", len(sess.Created()))
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&normSet, "normset", "n", nil, "observables to normalize over (comma separated)")
	return cmd
}
