// Package rendering looks up rendered blueprint images and bridges the
// gap between a payload being saved and its rendering being produced
// by the out-of-process renderer
package rendering

import (
	"context"
	"errors"
	"factoriotech/domain"
	"fmt"
)

const (
	// ContentType is the media type of every stored rendering
	ContentType = "image/png"
	// CacheControl is attached to stored renderings; they never change once written
	CacheControl = "public, immutable, max-age=2629800"
)

var (
	// ErrNotFound means the rendering did not show up in time, or never will
	ErrNotFound = errors.New("rendering not found")
	// ErrBackendUnavailable means the asset store itself failed
	ErrBackendUnavailable = errors.New("rendering backend unavailable")
)

// Store is the read side of the asset store. A missing rendering is
// reported as found == false with a nil error.
type Store interface {
	TryLoad(ctx context.Context, hash domain.Hash, renderingType domain.RenderingType) (data []byte, found bool, err error)
}

// Publisher writes renderings. Only operator tooling uses it; the
// renderer owns the write path in production.
type Publisher interface {
	Save(ctx context.Context, hash domain.Hash, renderingType domain.RenderingType, data []byte) error
}

// ObjectKey is the location of a rendering relative to a store root
func ObjectKey(prefix string, hash domain.Hash, renderingType domain.RenderingType) string {
	if prefix == "" {
		return fmt.Sprintf("%s/%s.png", renderingType.Slug(), hash)
	}

	return fmt.Sprintf("%s/%s/%s.png", prefix, renderingType.Slug(), hash)
}
