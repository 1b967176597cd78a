package main

import (
	"context"
	"factoriotech/payload"
	"factoriotech/server"
	"factoriotech/utils"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type countingIndex interface {
	server.PayloadIndex
	Count(ctx context.Context) (int, error)
}

// selectPayloadIndex returns index when it can gate rendering requests.
// An empty index would turn every request into a 404, so it is left out.
func selectPayloadIndex(ctx context.Context, index countingIndex, logger *zap.Logger) (server.PayloadIndex, error) {
	count, err := index.Count(ctx)
	if err != nil {
		return nil, err
	}

	if count == 0 {
		logger.Warn("Payload index is empty; polling for every well-formed hash instead")
		return nil, nil
	}

	logger.Info("Payload index enabled", zap.Int("payloads", count))
	return index, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			logger.Info("Starting factoriotech", zap.String("backend", conf.Rendering.Backend))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := newRenderingBackend(ctx, conf, logger)
			if err != nil {
				logger.Fatal("Error opening rendering store", zap.Error(err))
			}

			var payloads server.PayloadIndex
			if conf.Postgres.Enabled() {
				payloadService := payload.NewService(payload.Open(conf.Postgres), logger)
				defer payloadService.Close()

				payloads, err = selectPayloadIndex(ctx, payloadService, logger)
				if err != nil {
					logger.Fatal("Error reading payload index", zap.Error(err))
				}
			} else {
				logger.Info("No payload index configured; every well-formed hash will be polled for")
			}

			poller := newPoller(conf, store, logger)
			srv := server.New(poller, payloads, conf.HTTP.AllowedOrigins, logger)

			writeTimeout := poller.Timeout() + poller.Interval() + 10*time.Second
			shutdownTimeout := utils.ParseDurationOr(conf.HTTP.ShutdownTimeout, poller.Timeout()+5*time.Second)

			return srv.ListenAndServe(ctx, conf.HTTP.Addr, writeTimeout, shutdownTimeout)
		},
	}
}
