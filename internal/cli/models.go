package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rnshah9/root/pkg/modelio"
	"github.com/rnshah9/root/pkg/store"
)

// newModelsCmd creates the models command group for the shared store.
func newModelsCmd() *cobra.Command {
	var (
		uri string
		db  string
	)

	cmd := &cobra.Command{
		Use:   "models",
		Short: "Manage the shared model store",
		Long: `The models commands save, list, fetch, and delete model definitions in
the shared MongoDB store, so analyses can reference models by ID instead
of passing files around.`,
	}

	cmd.PersistentFlags().StringVar(&uri, "uri", "", "MongoDB connection URI (default: $NORMFOLD_MONGO_URI or mongodb://localhost:27017)")
	cmd.PersistentFlags().StringVar(&db, "db", "normfold", "MongoDB database name")

	connect := func(ctx context.Context) (*store.Store, error) {
		resolved := uri
		if resolved == "" {
			resolved = os.Getenv("NORMFOLD_MONGO_URI")
		}
		if resolved == "" {
			resolved = "mongodb://localhost:27017"
		}
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return store.Connect(ctx, resolved, db)
	}

	saveCmd := &cobra.Command{
		Use:   "save MODEL",
		Short: "Save a model file to the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			name, _ = cmd.Flags().GetString("name")

			model, err := modelio.ReadFile(args[0])
			if err != nil {
				return err
			}
			if name == "" {
				name = model.Name
			}
			if name == "" {
				return fmt.Errorf("model has no name; pass --name")
			}
			if _, err := modelio.ToGraph(model); err != nil {
				return fmt.Errorf("model does not form a valid graph: %w", err)
			}

			st, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close(cmd.Context())

			rec, err := st.Save(cmd.Context(), name, model)
			if err != nil {
				return err
			}
			printSuccess("Saved %s", StyleHighlight.Render(name))
			printKeyValue("id", rec.ID)
			return nil
		},
	}
	saveCmd.Flags().String("name", "", "store name (default: model name from the file)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close(cmd.Context())

			recs, err := st.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				printInfo("No stored models")
				return nil
			}
			for _, rec := range recs {
				fmt.Printf("%s  %-24s %s\n",
					StyleDim.Render(rec.ID),
					StyleValue.Render(rec.Name),
					StyleDim.Render(rec.CreatedAt.Format(time.RFC3339)))
			}
			return nil
		},
	}

	getCmd := &cobra.Command{
		Use:   "get ID",
		Short: "Print a stored model as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close(cmd.Context())

			rec, err := st.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return modelio.Write(rec.Model, os.Stdout)
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a stored model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close(cmd.Context())

			if err := st.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			printSuccess("Deleted %s", args[0])
			return nil
		},
	}

	cmd.AddCommand(saveCmd, listCmd, getCmd, deleteCmd)
	return cmd
}
