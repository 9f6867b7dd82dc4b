// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tomtom215/curator/internal/models"
)

// RequestStore is the canonical store of fulfilled requests. It implements
// queue.FulfilledStore and dedup.FulfilledLookup.
type RequestStore struct {
	db *DB
}

// IsFulfilled reports whether a request for key was already submitted.
func (s *RequestStore) IsFulfilled(ctx context.Context, key models.ItemKey) (_ bool, err error) {
	ctx, cancel := s.db.ensureContext(ctx)
	defer cancel()
	defer track("select", "requests")(&err)

	var n int
	err = s.db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM requests WHERE media_type = ? AND catalog_id = ?`,
		string(key.Kind), key.CatalogID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("lookup fulfilled %s: %w", key, err)
	}
	return n > 0, nil
}

// RecordFulfilled inserts req. An existing row for the same key is kept.
func (s *RequestStore) RecordFulfilled(ctx context.Context, req *models.FulfilledRequest) (err error) {
	ctx, cancel := s.db.ensureContext(ctx)
	defer cancel()
	defer track("insert", "requests")(&err)

	_, err = s.db.exec(ctx, `
		INSERT INTO requests (media_type, catalog_id, title, source_id, source_title, requester_id,
			requester_name, rationale, anime, job_id, requested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (media_type, catalog_id) DO NOTHING`,
		string(req.Kind), req.CatalogID, nullString(req.Title), nullInt(int64(req.SourceID)),
		nullString(req.SourceTitle), nullString(req.RequesterID), nullString(req.RequesterName),
		nullString(req.Rationale), req.Anime, nullInt(req.JobID), req.RequestedAt.UTC())
	if err != nil {
		return fmt.Errorf("record fulfilled %s:%d: %w", req.Kind, req.CatalogID, err)
	}
	return nil
}

// ListFulfilled returns fulfilled requests, most recent first.
func (s *RequestStore) ListFulfilled(ctx context.Context, limit, offset int) (_ []models.FulfilledRequest, err error) {
	ctx, cancel := s.db.ensureContext(ctx)
	defer cancel()
	defer track("select", "requests")(&err)

	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT id, media_type, catalog_id, title, source_id, source_title, requester_id,
			requester_name, rationale, anime, job_id, requested_at
		FROM requests
		ORDER BY requested_at DESC, id DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list fulfilled requests: %w", err)
	}
	defer closeWithLog(rows, "request rows")

	var out []models.FulfilledRequest
	for rows.Next() {
		var (
			r                                          models.FulfilledRequest
			title, sourceTitle, reqID, reqName, reason sql.NullString
			sourceID, jobID                            sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.Kind, &r.CatalogID, &title, &sourceID, &sourceTitle, &reqID,
			&reqName, &reason, &r.Anime, &jobID, &r.RequestedAt); err != nil {
			return nil, fmt.Errorf("scan fulfilled request: %w", err)
		}
		r.Title = title.String
		r.SourceID = int(sourceID.Int64)
		r.SourceTitle = sourceTitle.String
		r.RequesterID = reqID.String
		r.RequesterName = reqName.String
		r.Rationale = reason.String
		r.JobID = jobID.Int64
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullInt(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}
