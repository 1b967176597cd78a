package main

import (
	"factoriotech/domain"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newFetchCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "fetch <hash> <type>",
		Short: "Wait for a rendering and write it to a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := domain.ParseHash(args[0])
			if err != nil {
				return err
			}

			renderingType, err := domain.ParseRenderingType(args[1])
			if err != nil {
				return err
			}

			conf, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			store, err := newRenderingBackend(cmd.Context(), conf, logger)
			if err != nil {
				return err
			}

			data, err := newPoller(conf, store, logger).Load(cmd.Context(), hash, renderingType)
			if err != nil {
				return err
			}

			if output == "" {
				output = fmt.Sprintf("%s-%s.png", hash, renderingType.Slug())
			}

			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}

			logger.Info("Wrote rendering", zap.String("path", output), zap.Int("size", len(data)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default <hash>-<type>.png)")
	return cmd
}
