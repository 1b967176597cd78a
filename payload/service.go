// Package payload answers questions about recorded blueprint payloads
package payload

import (
	"context"
	"database/sql"
	"errors"
	"factoriotech/config"
	"factoriotech/db"
	"factoriotech/domain"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.uber.org/zap"
)

// ErrNotFound is returned when no payload has the requested hash
var ErrNotFound = errors.New("payload not found")

// Service reads the Payloads table
type Service struct {
	pg     *bun.DB
	logger *zap.Logger
}

// Open connects to PostgreSQL using the configured connection string
func Open(conf config.PostgresConfig) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(conf.ConnectionString)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// NewService creates a Service
func NewService(pg *bun.DB, logger *zap.Logger) *Service {
	return &Service{
		pg:     pg,
		logger: logger,
	}
}

// Count returns the number of recorded payloads. It fails when the
// table cannot be read, which is how a misconfigured index shows up.
func (s *Service) Count(ctx context.Context) (int, error) {
	count, err := s.pg.NewSelect().
		Model((*db.Payload)(nil)).
		Count(ctx)

	if err != nil {
		return 0, fmt.Errorf("Error counting payloads: %w", err)
	}

	return count, nil
}

// Exists reports whether a payload with hash has been recorded
func (s *Service) Exists(ctx context.Context, hash domain.Hash) (bool, error) {
	exists, err := s.selectQuery(hash).Exists(ctx)

	if err != nil {
		s.logger.Error("Error verifying if payload exists", zap.Stringer("hash", hash), zap.Error(err))
		return false, err
	}

	return exists, nil
}

// Get loads the payload with hash
func (s *Service) Get(ctx context.Context, hash domain.Hash) (db.Payload, error) {
	var payload db.Payload

	err := s.selectQuery(hash).Limit(1).Scan(ctx, &payload)

	if errors.Is(err, sql.ErrNoRows) {
		return db.Payload{}, ErrNotFound
	}

	if err != nil {
		s.logger.Error("Error loading payload", zap.Stringer("hash", hash), zap.Error(err))
		return db.Payload{}, err
	}

	return payload, nil
}

func (s *Service) selectQuery(hash domain.Hash) *bun.SelectQuery {
	return s.pg.NewSelect().
		Model((*db.Payload)(nil)).
		Where("? = ?", bun.Ident("p.Hash"), hash.String())
}

// Close releases the database connection pool
func (s *Service) Close() error {
	return s.pg.Close()
}
