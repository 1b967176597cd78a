package server

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"factoriotech/db"
	"factoriotech/domain"
	"factoriotech/payload"
	"factoriotech/rendering"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/minio/sha256-simd"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const oneMonthInSeconds = 2629800

var (
	errInternal                = errors.New("internal error")
	errPayloadIndexUnavailable = errors.New("payload index unavailable")
)

type problem struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleGetRendering(w http.ResponseWriter, r *http.Request) {
	hash, err := domain.ParseHash(chi.URLParam(r, "hash"))
	if err != nil {
		s.writeProblem(w, http.StatusBadRequest, err)
		return
	}

	renderingType, err := domain.ParseRenderingType(chi.URLParam(r, "type"))
	if err != nil {
		s.writeProblem(w, http.StatusBadRequest, err)
		return
	}

	if s.payloads != nil {
		exists, err := s.payloads.Exists(r.Context(), hash)
		if err != nil {
			if r.Context().Err() != nil {
				return
			}

			s.writeProblem(w, http.StatusServiceUnavailable, errPayloadIndexUnavailable)
			return
		}

		if !exists {
			s.writeProblem(w, http.StatusNotFound, payload.ErrNotFound)
			return
		}
	}

	data, err := s.renderings.Load(r.Context(), hash, renderingType)

	switch {
	case err == nil:
	case r.Context().Err() != nil:
		s.logger.Debug(
			"Rendering request cancelled",
			zap.Stringer("type", renderingType),
			zap.Stringer("hash", hash),
			zap.Error(r.Context().Err()),
		)
		return
	case errors.Is(err, rendering.ErrNotFound):
		s.writeProblem(w, http.StatusNotFound, err)
		return
	default:
		s.writeProblem(w, http.StatusServiceUnavailable, rendering.ErrBackendUnavailable)
		return
	}

	sum := sha256.Sum256(data)
	etag := `"` + hex.EncodeToString(sum[:]) + `"`

	w.Header().Set("Cache-Control", rendering.CacheControl)
	w.Header().Set("ETag", etag)

	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", rendering.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type link struct {
	Href string `json:"href"`
}

type payloadDetails struct {
	Hash        string          `json:"hash"`
	GameVersion string          `json:"gameVersion"`
	Type        int             `json:"type"`
	Encoded     string          `json:"encoded"`
	Links       map[string]link `json:"_links"`
}

func (s *Server) handleGetDetails(w http.ResponseWriter, r *http.Request) {
	hash, err := domain.ParseHash(chi.URLParam(r, "hash"))
	if err != nil {
		s.writeProblem(w, http.StatusBadRequest, err)
		return
	}

	p, ok := s.loadPayload(w, r, hash)
	if !ok {
		return
	}

	links := lo.Associate(domain.RenderingTypes(), func(t domain.RenderingType) (string, link) {
		return "rendering-" + t.Slug(), link{Href: fmt.Sprintf("/payloads/%s/rendering/%s", hash, t)}
	})
	links["self"] = link{Href: fmt.Sprintf("/payloads/%s", hash)}
	links["raw"] = link{Href: fmt.Sprintf("/payloads/%s/raw", hash)}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(payloadDetails{
		Hash:        p.Hash,
		GameVersion: p.GameVersion,
		Type:        p.Type,
		Encoded:     p.Encoded,
		Links:       links,
	})
}

func (s *Server) handleGetRaw(w http.ResponseWriter, r *http.Request) {
	hash, err := domain.ParseHash(chi.URLParam(r, "hash"))
	if err != nil {
		s.writeProblem(w, http.StatusBadRequest, err)
		return
	}

	p, ok := s.loadPayload(w, r, hash)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(oneMonthInSeconds))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(p.Encoded))
}

// loadPayload writes the error response itself and reports false when
// there is no payload to return
func (s *Server) loadPayload(w http.ResponseWriter, r *http.Request, hash domain.Hash) (db.Payload, bool) {
	if s.payloads == nil {
		s.writeProblem(w, http.StatusNotFound, payload.ErrNotFound)
		return db.Payload{}, false
	}

	p, err := s.payloads.Get(r.Context(), hash)
	if errors.Is(err, payload.ErrNotFound) {
		s.writeProblem(w, http.StatusNotFound, err)
		return db.Payload{}, false
	}

	if err != nil {
		if r.Context().Err() == nil {
			s.writeProblem(w, http.StatusServiceUnavailable, errPayloadIndexUnavailable)
		}

		return db.Payload{}, false
	}

	return p, true
}

// etagMatches applies the weak comparison If-None-Match calls for
func etagMatches(ifNoneMatch string, etag string) bool {
	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		candidate = strings.TrimSpace(candidate)

		if candidate == "*" {
			return true
		}

		if strings.TrimPrefix(candidate, "W/") == strings.TrimPrefix(etag, "W/") {
			return true
		}
	}

	return false
}

func (s *Server) writeProblem(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(problem{
		Status: status,
		Title:  http.StatusText(status),
		Detail: err.Error(),
	})
}
