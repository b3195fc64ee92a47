package cli

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/buckaroo/pkg/api"
	"github.com/matzehuels/buckaroo/pkg/config"
	"github.com/matzehuels/buckaroo/pkg/observability"
	"github.com/matzehuels/buckaroo/pkg/source"
)

// serveCommand creates the serve command, which runs the HTTP API until
// interrupted.
func (c *CLI) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve dependency resolution over HTTP",
		Long: `Serve runs the resolution API with Prometheus metrics.

  POST /v1/resolve                        resolve, streaming NDJSON progress
  GET  /v1/recipes/{source}/{org}/{name}  fetch one recipe
  GET  /healthz                           liveness
  GET  /metrics                           Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			e, err := c.newEnv(ctx, false)
			if err != nil {
				return err
			}
			defer e.Close()

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			observability.NewPrometheus(reg).Install()
			defer observability.Reset()

			srv := api.New(api.Config{
				Source:        e.source,
				Finder:        e.finder,
				DefaultSource: source.CookbookTag,
				Resolve:       e.resolveOptions(),
				Gatherer:      reg,
				Logger:        logger,
			})
			return srv.ListenAndServe(ctx, e.cfg.Listen)
		},
	}

	cmd.Flags().String("listen", "", "address to listen on (default "+config.DefaultListen+")")
	_ = c.v.BindPFlag(config.KeyListen, cmd.Flags().Lookup("listen"))

	return cmd
}
