package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rnshah9/root/pkg/modelio"
	"github.com/rnshah9/root/pkg/norm"
)

// newDepsCmd creates the deps command, a transitive dependency query.
// Exits non-zero when the node does not depend on the target so the
// command can be used in scripts.
func newDepsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deps MODEL NODE TARGET",
		Short: "Report whether NODE transitively depends on TARGET",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, nodeID, targetID := args[0], args[1], args[2]

			model, err := modelio.ReadFile(path)
			if err != nil {
				return err
			}
			g, err := modelio.ToGraph(model)
			if err != nil {
				return err
			}
			if _, ok := g.Node(nodeID); !ok {
				return fmt.Errorf("node %q not in model", nodeID)
			}

			// Building the checker over the queried node keeps the walk to
			// the subgraph that can actually matter for the answer.
			checker := norm.NewDependencyChecker(g, nodeID)
			if checker.DependsOn(nodeID, targetID) {
				printSuccess("%s depends on %s",
					StyleHighlight.Render(nodeID), StyleHighlight.Render(targetID))
				return nil
			}
			printWarning("%s does not depend on %s",
				StyleHighlight.Render(nodeID), StyleHighlight.Render(targetID))
			return fmt.Errorf("no dependency from %q to %q", nodeID, targetID)
		},
	}
}
