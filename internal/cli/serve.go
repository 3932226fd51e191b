package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rnshah9/root/internal/api"
	"github.com/rnshah9/root/pkg/cache"
	"github.com/rnshah9/root/pkg/pipeline"
	"github.com/rnshah9/root/pkg/store"
)

// newServeCmd creates the serve command running the HTTP API.
func newServeCmd() *cobra.Command {
	var (
		addr     string
		redisURL string
		mongoURI string
		mongoDB  string
		cacheDir string
		noCache  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Serve exposes the unfolding pipeline over HTTP. With --redis the result
cache is shared between workers; otherwise a local file cache is used.
With --mongo-uri the model store endpoints are enabled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var (
				c   cache.Cache
				err error
			)
			switch {
			case noCache:
				c = cache.NewNullCache()
			case redisURL != "":
				c, err = cache.NewRedisCache(ctx, redisURL)
			default:
				c, err = openCache(cacheDir, false)
			}
			if err != nil {
				return fmt.Errorf("open cache: %w", err)
			}
			defer c.Close()

			var st *store.Store
			var src pipeline.ModelSource
			if mongoURI != "" {
				connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
				st, err = store.Connect(connectCtx, mongoURI, mongoDB)
				cancel()
				if err != nil {
					return fmt.Errorf("connect model store: %w", err)
				}
				defer st.Close(context.Background())
				src = st
				logger.Info("model store enabled", "db", mongoDB)
			}

			runner := pipeline.NewRunner(c, nil, src, logger)
			server := api.NewServer(runner, st, logger)

			return server.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&redisURL, "redis", "", "Redis URL for a shared result cache")
	cmd.Flags().StringVar(&mongoURI, "mongo-uri", "", "MongoDB URI enabling the model store endpoints")
	cmd.Flags().StringVar(&mongoDB, "mongo-db", "normfold", "MongoDB database name")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "file cache directory (default: user cache dir)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the result cache")

	return cmd
}
