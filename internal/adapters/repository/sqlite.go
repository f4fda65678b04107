package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/chatkeeper/keeper/internal/domain/model"
	"github.com/chatkeeper/keeper/pkg/metrics"
)

const schema = `
CREATE TABLE IF NOT EXISTS actors (
	actor_id     INTEGER PRIMARY KEY,
	handle       TEXT,
	display_name TEXT,
	xp           INTEGER NOT NULL DEFAULT 0,
	level        INTEGER NOT NULL DEFAULT 1,
	warns        INTEGER NOT NULL DEFAULT 0,
	mod_rank     INTEGER NOT NULL DEFAULT 0,
	reputation   INTEGER NOT NULL DEFAULT 0,
	last_wipe    TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_actors_handle ON actors (handle);
CREATE INDEX IF NOT EXISTS idx_actors_level_xp ON actors (level DESC, xp DESC);

CREATE TABLE IF NOT EXISTS warn_reasons (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	actor_id INTEGER NOT NULL,
	reason   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_warn_reasons_actor ON warn_reasons (actor_id);

CREATE TABLE IF NOT EXISTS rep_history (
	from_id  INTEGER NOT NULL,
	to_id    INTEGER NOT NULL,
	date_key TEXT NOT NULL,
	PRIMARY KEY (from_id, to_id, date_key)
);

CREATE TABLE IF NOT EXISTS badwords (
	item TEXT PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS whitelist (
	item TEXT PRIMARY KEY
);
`

// SQLiteStore is the production Store over a single SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens the store and applies the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// track records the call latency and error counter for one store operation.
func track(start time.Time, err error) {
	metrics.RecordStoreLatency(float64(time.Since(start).Milliseconds()))
	if err != nil && !errors.Is(err, ErrNotFound) {
		metrics.RecordStoreError()
	}
}

// NormalizeHandle strips the leading '@' and lowercases.
func NormalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimPrefix(handle, "@"))
}

const actorColumns = `actor_id, handle, display_name, xp, level, warns, mod_rank, reputation, last_wipe`

func scanActor(row interface{ Scan(...any) error }) (model.Actor, error) {
	var a model.Actor
	var handle, displayName sql.NullString
	err := row.Scan(&a.ID, &handle, &displayName, &a.XP, &a.Level, &a.Warns, &a.Rank, &a.Reputation, &a.LastWipe)
	if err != nil {
		return model.Actor{}, err
	}
	a.Handle = handle.String
	a.DisplayName = displayName.String
	return a, nil
}

func (s *SQLiteStore) EnsureActor(ctx context.Context, actorID int64, handle, displayName string) (a model.Actor, err error) {
	start := time.Now()
	defer func() { track(start, err) }()

	norm := NormalizeHandle(handle)
	a, err = s.Actor(ctx, actorID)
	if errors.Is(err, ErrNotFound) {
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO actors (actor_id, handle, display_name) VALUES (?, ?, ?)
			ON CONFLICT (actor_id) DO NOTHING`,
			actorID, norm, displayName)
		if err != nil {
			return model.Actor{}, fmt.Errorf("create actor %d: %w", actorID, err)
		}
		return s.Actor(ctx, actorID)
	}
	if err != nil {
		return model.Actor{}, err
	}

	// Refresh identity on every observed event.
	if (norm != "" && norm != a.Handle) || (displayName != "" && displayName != a.DisplayName) {
		if norm == "" {
			norm = a.Handle
		}
		if displayName == "" {
			displayName = a.DisplayName
		}
		if _, err = s.db.ExecContext(ctx,
			`UPDATE actors SET handle = ?, display_name = ? WHERE actor_id = ?`,
			norm, displayName, actorID); err != nil {
			return model.Actor{}, fmt.Errorf("refresh actor %d: %w", actorID, err)
		}
		a.Handle = norm
		a.DisplayName = displayName
	}
	return a, nil
}

func (s *SQLiteStore) Actor(ctx context.Context, actorID int64) (a model.Actor, err error) {
	start := time.Now()
	defer func() { track(start, err) }()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+actorColumns+` FROM actors WHERE actor_id = ?`, actorID)
	a, err = scanActor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Actor{}, fmt.Errorf("actor %d: %w", actorID, ErrNotFound)
	}
	if err != nil {
		return model.Actor{}, fmt.Errorf("load actor %d: %w", actorID, err)
	}
	return a, nil
}

func (s *SQLiteStore) LookupHandle(ctx context.Context, handle string) (id int64, err error) {
	start := time.Now()
	defer func() { track(start, err) }()

	err = s.db.QueryRowContext(ctx,
		`SELECT actor_id FROM actors WHERE handle = ?`, NormalizeHandle(handle)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("handle %q: %w", handle, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("lookup handle %q: %w", handle, err)
	}
	return id, nil
}

func (s *SQLiteStore) SetRank(ctx context.Context, actorID int64, rank int) (err error) {
	start := time.Now()
	defer func() { track(start, err) }()

	_, err = s.db.ExecContext(ctx,
		`UPDATE actors SET mod_rank = ? WHERE actor_id = ?`, rank, actorID)
	if err != nil {
		return fmt.Errorf("set rank for %d: %w", actorID, err)
	}
	return nil
}

func (s *SQLiteStore) TopActors(ctx context.Context, limit int) (actors []model.Actor, err error) {
	start := time.Now()
	defer func() { track(start, err) }()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+actorColumns+` FROM actors ORDER BY level DESC, xp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query top actors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		a, scanErr := scanActor(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan top actor: %w", scanErr)
		}
		actors = append(actors, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top actors: %w", err)
	}
	return actors, nil
}

func (s *SQLiteStore) Standing(ctx context.Context, actorID int64) (rank int, err error) {
	start := time.Now()
	defer func() { track(start, err) }()

	var xp int64
	var level int
	err = s.db.QueryRowContext(ctx,
		`SELECT xp, level FROM actors WHERE actor_id = ?`, actorID).Scan(&xp, &level)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("actor %d: %w", actorID, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("load standing for %d: %w", actorID, err)
	}

	var above int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM actors WHERE level > ? OR (level = ? AND xp > ?)`,
		level, level, xp).Scan(&above)
	if err != nil {
		return 0, fmt.Errorf("count standing for %d: %w", actorID, err)
	}
	return above + 1, nil
}

func (s *SQLiteStore) Staff(ctx context.Context) (actors []model.Actor, err error) {
	start := time.Now()
	defer func() { track(start, err) }()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+actorColumns+` FROM actors WHERE mod_rank > 0 ORDER BY mod_rank DESC`)
	if err != nil {
		return nil, fmt.Errorf("query staff: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		a, scanErr := scanActor(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan staff actor: %w", scanErr)
		}
		actors = append(actors, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate staff: %w", err)
	}
	return actors, nil
}

func (s *SQLiteStore) ActorCount(ctx context.Context) (n int, err error) {
	start := time.Now()
	defer func() { track(start, err) }()

	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM actors`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count actors: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Progress(ctx context.Context, actorID int64) (xp int64, level int, err error) {
	start := time.Now()
	defer func() { track(start, err) }()

	err = s.db.QueryRowContext(ctx,
		`SELECT xp, level FROM actors WHERE actor_id = ?`, actorID).Scan(&xp, &level)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, fmt.Errorf("actor %d: %w", actorID, ErrNotFound)
	}
	if err != nil {
		return 0, 0, fmt.Errorf("load progress for %d: %w", actorID, err)
	}
	return xp, level, nil
}

func (s *SQLiteStore) SetProgress(ctx context.Context, actorID int64, xp int64, level int) (err error) {
	start := time.Now()
	defer func() { track(start, err) }()

	_, err = s.db.ExecContext(ctx,
		`UPDATE actors SET xp = ?, level = ? WHERE actor_id = ?`, xp, level, actorID)
	if err != nil {
		return fmt.Errorf("set progress for %d: %w", actorID, err)
	}
	return nil
}

func (s *SQLiteStore) WarnState(ctx context.Context, actorID int64) (count int, reasons []string, err error) {
	start := time.Now()
	defer func() { track(start, err) }()

	err = s.db.QueryRowContext(ctx,
		`SELECT warns FROM actors WHERE actor_id = ?`, actorID).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil, nil
	}
	if err != nil {
		return 0, nil, fmt.Errorf("load warns for %d: %w", actorID, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT reason FROM warn_reasons WHERE actor_id = ? ORDER BY id`, actorID)
	if err != nil {
		return 0, nil, fmt.Errorf("load warn reasons for %d: %w", actorID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var r string
		if scanErr := rows.Scan(&r); scanErr != nil {
			return 0, nil, fmt.Errorf("scan warn reason: %w", scanErr)
		}
		reasons = append(reasons, r)
	}
	if err = rows.Err(); err != nil {
		return 0, nil, fmt.Errorf("iterate warn reasons: %w", err)
	}
	return count, reasons, nil
}

func (s *SQLiteStore) SetWarnState(ctx context.Context, actorID int64, count int, reasons []string) (err error) {
	start := time.Now()
	defer func() { track(start, err) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin warn tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`UPDATE actors SET warns = ? WHERE actor_id = ?`, count, actorID); err != nil {
		return fmt.Errorf("set warns for %d: %w", actorID, err)
	}
	if _, err = tx.ExecContext(ctx,
		`DELETE FROM warn_reasons WHERE actor_id = ?`, actorID); err != nil {
		return fmt.Errorf("clear warn reasons for %d: %w", actorID, err)
	}
	for _, r := range reasons {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO warn_reasons (actor_id, reason) VALUES (?, ?)`, actorID, r); err != nil {
			return fmt.Errorf("insert warn reason for %d: %w", actorID, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit warn tx: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ReputationGrantExists(ctx context.Context, fromID, toID int64, dateKey string) (ok bool, err error) {
	start := time.Now()
	defer func() { track(start, err) }()

	var one int
	err = s.db.QueryRowContext(ctx,
		`SELECT 1 FROM rep_history WHERE from_id = ? AND to_id = ? AND date_key = ?`,
		fromID, toID, dateKey).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check rep grant: %w", err)
	}
	return true, nil
}

func (s *SQLiteStore) ReputationGrantsOn(ctx context.Context, fromID int64, dateKey string) (n int, err error) {
	start := time.Now()
	defer func() { track(start, err) }()

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM rep_history WHERE from_id = ? AND date_key = ?`,
		fromID, dateKey).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count rep grants: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) RecordReputationGrant(ctx context.Context, fromID, toID int64, dateKey string) (err error) {
	start := time.Now()
	defer func() { track(start, err) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rep tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO rep_history (from_id, to_id, date_key) VALUES (?, ?, ?)`,
		fromID, toID, dateKey); err != nil {
		return fmt.Errorf("insert rep grant: %w", err)
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE actors SET reputation = reputation + 1 WHERE actor_id = ?`, toID); err != nil {
		return fmt.Errorf("bump reputation for %d: %w", toID, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit rep tx: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Reputation(ctx context.Context, actorID int64) (n int, err error) {
	start := time.Now()
	defer func() { track(start, err) }()

	err = s.db.QueryRowContext(ctx,
		`SELECT reputation FROM actors WHERE actor_id = ?`, actorID).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("actor %d: %w", actorID, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("load reputation for %d: %w", actorID, err)
	}
	return n, nil
}

func (s *SQLiteStore) LastWipe(ctx context.Context, actorID int64) (dateKey string, err error) {
	start := time.Now()
	defer func() { track(start, err) }()

	err = s.db.QueryRowContext(ctx,
		`SELECT last_wipe FROM actors WHERE actor_id = ?`, actorID).Scan(&dateKey)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load wipe date for %d: %w", actorID, err)
	}
	return dateKey, nil
}

func (s *SQLiteStore) SetLastWipe(ctx context.Context, actorID int64, dateKey string) (err error) {
	start := time.Now()
	defer func() { track(start, err) }()

	_, err = s.db.ExecContext(ctx,
		`UPDATE actors SET last_wipe = ? WHERE actor_id = ?`, dateKey, actorID)
	if err != nil {
		return fmt.Errorf("set wipe date for %d: %w", actorID, err)
	}
	return nil
}

func listTable(kind ListKind) (string, error) {
	switch kind {
	case ListBanned:
		return "badwords", nil
	case ListAllow:
		return "whitelist", nil
	default:
		return "", fmt.Errorf("list %q: %w", kind, ErrUnknownList)
	}
}

func (s *SQLiteStore) List(ctx context.Context, kind ListKind) (items []string, err error) {
	start := time.Now()
	defer func() { track(start, err) }()

	table, err := listTable(kind)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT item FROM `+table+` ORDER BY item`)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var item string
		if scanErr := rows.Scan(&item); scanErr != nil {
			return nil, fmt.Errorf("scan %s item: %w", table, scanErr)
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return items, nil
}

func (s *SQLiteStore) AddListItem(ctx context.Context, kind ListKind, item string) (err error) {
	start := time.Now()
	defer func() { track(start, err) }()

	table, err := listTable(kind)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO `+table+` (item) VALUES (?) ON CONFLICT (item) DO NOTHING`,
		strings.ToLower(item))
	if err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

func (s *SQLiteStore) RemoveListItem(ctx context.Context, kind ListKind, item string) (err error) {
	start := time.Now()
	defer func() { track(start, err) }()

	table, err := listTable(kind)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`DELETE FROM `+table+` WHERE item = ?`, strings.ToLower(item))
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	return nil
}
