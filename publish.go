package main

import (
	"bytes"
	"errors"
	"factoriotech/domain"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

func newPublishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish <hash> <type> <file>",
		Short: "Store a rendering produced outside the renderer",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := domain.ParseHash(args[0])
			if err != nil {
				return err
			}

			renderingType, err := domain.ParseRenderingType(args[1])
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[2])
			if err != nil {
				return err
			}

			if !bytes.HasPrefix(data, pngSignature) {
				return errors.New("rendering must be a PNG image")
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

			if err := store.Save(cmd.Context(), hash, renderingType, data); err != nil {
				return err
			}

			logger.Info("Published rendering", zap.Stringer("hash", hash), zap.Stringer("type", renderingType))
			return nil
		},
	}
}
