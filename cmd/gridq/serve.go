package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/alfredjeanlab/gridq/internal/catalog"
	"github.com/alfredjeanlab/gridq/internal/config"
	"github.com/alfredjeanlab/gridq/internal/events"
	"github.com/alfredjeanlab/gridq/internal/server"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Serve datasets over HTTP, gRPC and NATS",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("datasets") {
			cfg.DatasetsFile = datasetsFile
		}
		if cmd.Flags().Changed("nats-url") {
			cfg.NATSURL = natsURL
		}
		if v, _ := cmd.Flags().GetString("http-addr"); v != "" {
			cfg.HTTPAddr = v
		}
		if v, _ := cmd.Flags().GetString("grpc-addr"); v != "" {
			cfg.GRPCAddr = v
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// Event publisher.
		var publisher events.Publisher = &events.NoopPublisher{}
		var natsPub *events.NATSPublisher
		if cfg.NATSURL != "" {
			natsPub, err = events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				return err
			}
			publisher = natsPub
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			logger.Info("events disabled (GRIDQ_NATS_URL not set)")
		}
		// Load events reach SSE clients through the hub, then NATS.
		hub := server.NewEventHub(publisher)
		defer func() {
			if err := hub.Close(); err != nil {
				logger.Error("error closing publisher", "err", err)
			}
		}()

		cat, err := openCatalog(ctx, cfg.DatasetsFile, nil,
			catalog.WithPublisher(hub),
			catalog.WithLocale(cfg.Locale),
			catalog.WithLoadHook(server.ObserveDataset),
		)
		if err != nil {
			return err
		}
		// A dataset that fails to load answers 503 until a reload succeeds.
		if err := cat.LoadAll(ctx); err != nil {
			logger.Warn("some datasets failed to load", "err", err)
		}

		qs := server.NewQueryServer(cat, logger)
		qs.SetEventHub(hub)
		grpcServer := server.NewGRPCServer(qs, cfg.AuthToken)
		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           qs.NewHTTPHandler(cfg.AuthToken),
			ReadHeaderTimeout: 10 * time.Second,
			// Event streams end when shutdown begins.
			BaseContext: func(net.Listener) context.Context { return ctx },
		}

		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return err
		}

		var responder *server.NATSResponder
		if natsPub != nil {
			responder = server.NewNATSResponder(qs, natsPub.Conn())
			if err := responder.Start(); err != nil {
				return err
			}
			logger.Info("NATS query responder started", "subject", server.QuerySubjectPrefix+"*")
		}

		var reloader *catalog.Reloader
		if cfg.ReloadInterval > 0 {
			reloader = catalog.NewReloader(cat, cfg.ReloadInterval, logger)
			reloader.Start()
			logger.Info("reloader started", "interval", cfg.ReloadInterval)
		}

		var watcher *catalog.Watcher
		if cfg.Watch {
			watcher = catalog.NewWatcher(cat, catalog.DefaultDebounce, logger)
			n, err := watcher.Start()
			if err != nil {
				logger.Error("file watcher failed to start", "err", err)
				watcher = nil
			} else {
				logger.Info("file watcher started", "datasets", n)
			}
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
			if err := grpcServer.Serve(lis); err != nil {
				return fmt.Errorf("gRPC server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("HTTP server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("shutting down")

			if watcher != nil {
				watcher.Stop()
			}
			if reloader != nil {
				reloader.Stop()
			}
			if responder != nil {
				if err := responder.Stop(); err != nil {
					logger.Error("NATS responder drain error", "err", err)
				}
			}

			grpcServer.GracefulStop()
			logger.Info("gRPC server stopped")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP server shutdown error", "err", err)
			}
			logger.Info("HTTP server stopped")
			return nil
		})

		logger.Info("gridq server started",
			"datasets", len(cat.Names()),
			"grpc_addr", cfg.GRPCAddr,
			"http_addr", cfg.HTTPAddr,
		)

		if err := g.Wait(); err != nil {
			return err
		}
		logger.Info("shutdown complete")
		return nil
	},
}

func init() {
	serveCmd.Flags().String("http-addr", "", "HTTP listen address (default $GRIDQ_HTTP_ADDR or :8080)")
	serveCmd.Flags().String("grpc-addr", "", "gRPC listen address (default $GRIDQ_GRPC_ADDR or :9090)")
}
