package storage

import (
	"context"
	"fmt"
	"time"

	"gymdesk/internal/core"
)

func (r *SQLiteRepository) InsertAccessLog(ctx context.Context, l core.AccessLog) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO access_logs (id, client_id, timestamp, admin_id) VALUES (?, ?, ?, ?)`,
		l.ID, l.ClientID, formatTimestamp(l.Timestamp), l.AdminID)
	return mapErr("insert access log", err)
}

func (r *SQLiteRepository) ListAccessLogsBetween(ctx context.Context, from, to time.Time) ([]core.AccessLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, client_id, timestamp, admin_id FROM access_logs WHERE timestamp >= ? AND timestamp < ? ORDER BY timestamp DESC`,
		formatTimestamp(from), formatTimestamp(to))
	if err != nil {
		return nil, mapErr("list access logs", err)
	}
	defer rows.Close()

	var out []core.AccessLog
	for rows.Next() {
		var (
			l  core.AccessLog
			ts string
		)
		if err := rows.Scan(&l.ID, &l.ClientID, &ts, &l.AdminID); err != nil {
			return nil, mapErr("scan access log", err)
		}
		if l.Timestamp, err = parseTimestamp(ts); err != nil {
			return nil, fmt.Errorf("access log %s timestamp: %w", l.ID, err)
		}
		out = append(out, l)
	}
	return out, mapErr("list access logs", rows.Err())
}
