package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/simp-lee/pagebind/config"
	"github.com/simp-lee/pagebind/jobs"
	"github.com/simp-lee/pagebind/pipeline"
	"github.com/simp-lee/pagebind/server"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the job API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := flags.setup()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if cfg.MissingCredential() {
				log.Warn("no extraction credential configured; jobs cannot start until PAGEBIND_EXTRACT_API_KEY is set")
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			metrics := pipeline.NewMetrics(reg)
			broker := jobs.NewBroker(64)

			coord := jobs.NewCoordinator(jobs.Deps{
				Store:    jobs.NewStore(),
				Settings: config.Reloading(flags.loadOptions()),
				Factory:  jobs.PipelineFactory(pipeline.WithMetrics(metrics), pipeline.WithLogger(log)),
				Sink:     pipeline.NewFileSink(afero.NewOsFs(), cfg.Output.Dir),
				Notifier: broker,
				Logger:   log,
			})
			srv := server.New(coord, broker, server.Options{
				Addr:            cfg.Server.Addr,
				RequestTimeout:  cfg.Server.RequestTimeout,
				ShutdownTimeout: cfg.Server.ShutdownTimeout,
				MaxBodyBytes:    cfg.Server.MaxBodyBytes,
				Gatherer:        reg,
				Logger:          log,
			})

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				return srv.Run(ctx)
			})
			g.Go(func() error {
				<-ctx.Done()
				waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
				defer cancel()
				if err := coord.Wait(waitCtx); err != nil {
					log.Warn("jobs still running at shutdown", "err", err)
				}
				return nil
			})
			if err := g.Wait(); err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides PAGEBIND_SERVER_ADDR)")
	return cmd
}
