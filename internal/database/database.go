// Package database provides PostgreSQL persistence for the sandbox backend
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/alexbotov/gametester/internal/domain"
	"github.com/alexbotov/gametester/internal/store"
	"github.com/alexbotov/gametester/pkg/gametester"
	"github.com/lib/pq" // PostgreSQL driver
	"github.com/samber/oops"
)

// DB wraps the SQL database connection and implements store.Store
type DB struct {
	*sql.DB
}

var _ store.Store = (*DB)(nil)

// New creates a new database connection
func New(ctx context.Context, driver, dsn string) (*DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, oops.Code("DB_OPEN_FAILED").In("database").Wrapf(err, "failed to open database")
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, oops.Code("DB_PING_FAILED").In("database").Wrapf(err, "failed to ping database")
	}

	return &DB{DB: db}, nil
}

// Migrate creates all required tables
func (db *DB) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS developers (
		token TEXT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tests (
		id TEXT PRIMARY KEY,
		developer_token TEXT NOT NULL REFERENCES developers(token),
		player_id VARCHAR(255) NOT NULL,
		player_name VARCHAR(255) NOT NULL DEFAULT '',
		pin_hash VARCHAR(255) NOT NULL DEFAULT '',
		state VARCHAR(20) NOT NULL DEFAULT 'setup',
		datapoints INTEGER[] NOT NULL DEFAULT '{}',
		unlocked_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL
	);

	-- One row per API call, successful or not
	CREATE TABLE IF NOT EXISTS events (
		seq BIGSERIAL PRIMARY KEY,
		id UUID UNIQUE NOT NULL,
		type VARCHAR(20) NOT NULL,
		developer_token TEXT NOT NULL,
		test_id TEXT,
		player_id VARCHAR(255),
		datapoint_id INTEGER,
		code INTEGER NOT NULL,
		message TEXT NOT NULL,
		sandbox BOOLEAN NOT NULL DEFAULT FALSE,
		request_id VARCHAR(64),
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tests_developer ON tests(developer_token);
	CREATE INDEX IF NOT EXISTS idx_events_developer ON events(developer_token);
	CREATE INDEX IF NOT EXISTS idx_events_test ON events(test_id);
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return oops.Code("DB_MIGRATE_FAILED").In("database").Wrapf(err, "failed to run migrations")
	}

	return nil
}

// Reset drops all tables (for testing)
func (db *DB) Reset(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `
		DROP TABLE IF EXISTS events CASCADE;
		DROP TABLE IF EXISTS tests CASCADE;
		DROP TABLE IF EXISTS developers CASCADE;
	`)
	return err
}

// CleanData truncates all tables without dropping them (for testing)
func (db *DB) CleanData(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `TRUNCATE TABLE events, tests, developers CASCADE;`)
	return err
}

func (db *DB) CreateDeveloper(ctx context.Context, dev *domain.Developer) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO developers (token, name, created_at) VALUES ($1, $2, $3)`,
		dev.Token, dev.Name, dev.CreatedAt,
	)
	if err != nil {
		return oops.Code("DB_INSERT_FAILED").In("database").With("developer", dev.Name).Wrapf(err, "failed to create developer")
	}
	return nil
}

func (db *DB) GetDeveloper(ctx context.Context, token string) (*domain.Developer, error) {
	var dev domain.Developer
	err := db.QueryRowContext(ctx,
		`SELECT token, name, created_at FROM developers WHERE token = $1`, token,
	).Scan(&dev.Token, &dev.Name, &dev.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, oops.Code("DB_QUERY_FAILED").In("database").Wrapf(err, "failed to get developer")
	}
	return &dev, nil
}

func (db *DB) CreateTest(ctx context.Context, test *domain.Test) error {
	if _, err := db.GetDeveloper(ctx, test.DeveloperToken); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return oops.Code("STORE_UNKNOWN_DEVELOPER").In("database").With("test_id", test.ID).Wrap(err)
		}
		return err
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO tests (id, developer_token, player_id, player_name, pin_hash, state, datapoints, unlocked_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		test.ID, test.DeveloperToken, test.PlayerID, test.PlayerName, test.PinHash,
		string(test.State), pq.Array(toInt64s(test.Datapoints)), test.UnlockedAt, test.CreatedAt,
	)
	if err != nil {
		return oops.Code("DB_INSERT_FAILED").In("database").With("test_id", test.ID).Wrapf(err, "failed to create test")
	}
	return nil
}

const testColumns = `id, developer_token, player_id, player_name, pin_hash, state, datapoints, unlocked_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTest(row rowScanner) (*domain.Test, error) {
	var (
		test       domain.Test
		state      string
		datapoints pq.Int64Array
		unlockedAt sql.NullTime
	)
	err := row.Scan(&test.ID, &test.DeveloperToken, &test.PlayerID, &test.PlayerName,
		&test.PinHash, &state, &datapoints, &unlockedAt, &test.CreatedAt)
	if err != nil {
		return nil, err
	}

	test.State = domain.TestState(state)
	test.Datapoints = make([]int, len(datapoints))
	for i, id := range datapoints {
		test.Datapoints[i] = int(id)
	}
	if unlockedAt.Valid {
		at := unlockedAt.Time
		test.UnlockedAt = &at
	}
	return &test, nil
}

func (db *DB) GetTest(ctx context.Context, id string) (*domain.Test, error) {
	test, err := scanTest(db.QueryRowContext(ctx,
		`SELECT `+testColumns+` FROM tests WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, oops.Code("DB_QUERY_FAILED").In("database").With("test_id", id).Wrapf(err, "failed to get test")
	}
	return test, nil
}

func (db *DB) ListTests(ctx context.Context, developerToken string) ([]*domain.Test, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+testColumns+` FROM tests WHERE developer_token = $1 ORDER BY created_at`, developerToken)
	if err != nil {
		return nil, oops.Code("DB_QUERY_FAILED").In("database").Wrapf(err, "failed to list tests")
	}
	defer rows.Close()

	var tests []*domain.Test
	for rows.Next() {
		test, err := scanTest(rows)
		if err != nil {
			return nil, oops.Code("DB_SCAN_FAILED").In("database").Wrapf(err, "failed to scan test")
		}
		tests = append(tests, test)
	}
	return tests, rows.Err()
}

func (db *DB) UpdateTest(ctx context.Context, test *domain.Test) error {
	res, err := db.ExecContext(ctx, `
		UPDATE tests SET player_name = $2, pin_hash = $3, state = $4, datapoints = $5, unlocked_at = $6
		WHERE id = $1`,
		test.ID, test.PlayerName, test.PinHash, string(test.State),
		pq.Array(toInt64s(test.Datapoints)), test.UnlockedAt,
	)
	if err != nil {
		return oops.Code("DB_UPDATE_FAILED").In("database").With("test_id", test.ID).Wrapf(err, "failed to update test")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (db *DB) AppendEvent(ctx context.Context, event *domain.Event) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO events (id, type, developer_token, test_id, player_id, datapoint_id, code, message, sandbox, request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		event.ID, string(event.Type), event.DeveloperToken, event.TestID, event.PlayerID,
		event.DatapointID, int(event.Code), event.Message, event.Sandbox,
		sql.NullString{String: event.RequestID, Valid: event.RequestID != ""}, event.CreatedAt,
	)
	if err != nil {
		return oops.Code("DB_INSERT_FAILED").In("database").With("event_id", event.ID).Wrapf(err, "failed to append event")
	}
	return nil
}

func (db *DB) ListEvents(ctx context.Context, filter *store.EventFilter) ([]*domain.Event, error) {
	var (
		where []string
		args  []any
	)
	if filter != nil {
		if filter.DeveloperToken != "" {
			args = append(args, filter.DeveloperToken)
			where = append(where, fmt.Sprintf("developer_token = $%d", len(args)))
		}
		if filter.TestID != "" {
			args = append(args, filter.TestID)
			where = append(where, fmt.Sprintf("test_id = $%d", len(args)))
		}
		if filter.Type != "" {
			args = append(args, string(filter.Type))
			where = append(where, fmt.Sprintf("type = $%d", len(args)))
		}
	}

	query := `SELECT id, type, developer_token, test_id, player_id, datapoint_id, code, message, sandbox, request_id, created_at FROM events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, filter.EffectiveLimit())
	query += fmt.Sprintf(" ORDER BY seq DESC LIMIT $%d", len(args))

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, oops.Code("DB_QUERY_FAILED").In("database").Wrapf(err, "failed to list events")
	}
	defer rows.Close()

	var events []*domain.Event
	for rows.Next() {
		var (
			ev          domain.Event
			typ         string
			testID      sql.NullString
			playerID    sql.NullString
			datapointID sql.NullInt64
			code        int
			requestID   sql.NullString
		)
		if err := rows.Scan(&ev.ID, &typ, &ev.DeveloperToken, &testID, &playerID, &datapointID,
			&code, &ev.Message, &ev.Sandbox, &requestID, &ev.CreatedAt); err != nil {
			return nil, oops.Code("DB_SCAN_FAILED").In("database").Wrapf(err, "failed to scan event")
		}

		ev.Type = domain.EventType(typ)
		ev.Code = gametester.ResponseCode(code)
		ev.RequestID = requestID.String
		if testID.Valid {
			ev.TestID = &testID.String
		}
		if playerID.Valid {
			ev.PlayerID = &playerID.String
		}
		if datapointID.Valid {
			id := int(datapointID.Int64)
			ev.DatapointID = &id
		}
		events = append(events, &ev)
	}
	return events, rows.Err()
}

func toInt64s(ids []int) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}
