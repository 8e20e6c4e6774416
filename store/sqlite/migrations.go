package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the FlowStream store (SQLite).
var Migrations = migrate.NewGroup("flowstream")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_flowstream_streams",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS flowstream_streams (
    id               TEXT PRIMARY KEY,
    sender           TEXT NOT NULL DEFAULT '',
    recipient        TEXT NOT NULL DEFAULT '',
    token            TEXT NOT NULL DEFAULT '',
    deposit_units    INTEGER NOT NULL DEFAULT 0,
    flow_rate_units  INTEGER NOT NULL DEFAULT 0,
    withdrawn_units  INTEGER NOT NULL DEFAULT 0,
    start_time       TEXT NOT NULL DEFAULT (datetime('now')),
    stop_time        TEXT NOT NULL DEFAULT (datetime('now')),
    active           INTEGER NOT NULL DEFAULT 1,
    cancelled_at     TEXT,
    metadata         TEXT NOT NULL DEFAULT '',
    created_at       TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at       TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_flowstream_streams_sender ON flowstream_streams (sender);
CREATE INDEX IF NOT EXISTS idx_flowstream_streams_recipient ON flowstream_streams (recipient);
CREATE INDEX IF NOT EXISTS idx_flowstream_streams_active ON flowstream_streams (active, stop_time);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS flowstream_streams`)
				return err
			},
		},
	)
}
