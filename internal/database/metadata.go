// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// MetadataStore is a key/value cache with per-entry expiry. It implements
// catalog.MetadataCache and ratings.MetadataCache.
type MetadataStore struct {
	db *DB
}

// GetMetadata returns the value stored under key. Expired entries are misses.
func (s *MetadataStore) GetMetadata(ctx context.Context, key string) (_ []byte, _ bool, err error) {
	ctx, cancel := s.db.ensureContext(ctx)
	defer cancel()
	defer track("select", "metadata_cache")(&err)

	var value []byte
	err = s.db.conn.QueryRowContext(ctx,
		`SELECT value FROM metadata_cache WHERE key = ? AND expires_at > ?`,
		key, s.db.now().UTC()).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get metadata %q: %w", key, err)
	}
	return value, true, nil
}

// SetMetadata stores value under key for ttl, replacing any previous entry.
func (s *MetadataStore) SetMetadata(ctx context.Context, key string, value []byte, ttl time.Duration) (err error) {
	ctx, cancel := s.db.ensureContext(ctx)
	defer cancel()
	defer track("upsert", "metadata_cache")(&err)

	now := s.db.now().UTC()
	_, err = s.db.exec(ctx, `
		INSERT INTO metadata_cache (key, value, expires_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`,
		key, value, now.Add(ttl), now)
	if err != nil {
		return fmt.Errorf("set metadata %q: %w", key, err)
	}
	return nil
}

// PruneExpired deletes expired entries.
func (s *MetadataStore) PruneExpired(ctx context.Context) (_ int, err error) {
	ctx, cancel := s.db.ensureContext(ctx)
	defer cancel()
	defer track("delete", "metadata_cache")(&err)

	res, err := s.db.exec(ctx, `DELETE FROM metadata_cache WHERE expires_at <= ?`, s.db.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("prune metadata cache: %w", err)
	}
	return affected(res)
}
