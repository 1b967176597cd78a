package main

import (
	"context"
	"factoriotech/config"
	"factoriotech/rendering"
	"factoriotech/utils"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type renderingBackend interface {
	rendering.Store
	rendering.Publisher
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "factoriotech",
		Short:         "Serves rendered Factorio blueprints",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		newServeCmd(),
		newFetchCmd(),
		newPublishCmd(),
	)

	return cmd
}

// setup loads the configuration and builds the logger every command needs
func setup() (config.Config, *zap.Logger, error) {
	conf, err := config.LoadConfig()
	if err != nil {
		return config.Config{}, nil, err
	}

	logger, err := utils.NewLogger(conf.Log)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("Error initializing logger: %w", err)
	}

	return conf, logger, nil
}

// newRenderingBackend opens the configured rendering store
func newRenderingBackend(ctx context.Context, conf config.Config, logger *zap.Logger) (renderingBackend, error) {
	switch conf.Rendering.Backend {
	case "local":
		return rendering.NewLocalStore(conf.Rendering.LocalRoot, logger)
	case "s3":
		s3Client, err := rendering.NewS3Client(conf.S3)
		if err != nil {
			return nil, fmt.Errorf("Error creating S3 client: %w", err)
		}

		store := rendering.NewS3Store(s3Client, conf.S3.S3BucketName, conf.Rendering.KeyPrefix, logger)
		if err := store.EnsureBucket(ctx, conf.S3.S3Region); err != nil {
			return nil, err
		}

		return store, nil
	default:
		return nil, fmt.Errorf("unknown rendering backend %q", conf.Rendering.Backend)
	}
}

func newPoller(conf config.Config, store rendering.Store, logger *zap.Logger) *rendering.Poller {
	return rendering.NewPoller(
		store,
		utils.ParseDurationOr(conf.Rendering.PollInterval, rendering.DefaultInterval),
		utils.ParseDurationOr(conf.Rendering.PollTimeout, rendering.DefaultTimeout),
		logger,
	)
}
