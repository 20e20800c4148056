package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/okian/duckhunt/internal/domain/player"
)

// SQLiteStore keeps one row per (channel, nick). A save replaces every row
// inside one transaction.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed creates) the database at path.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func initPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=FULL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS channels (
			name TEXT PRIMARY KEY
		);`,
		`CREATE TABLE IF NOT EXISTS players (
			channel TEXT NOT NULL,
			nick TEXT NOT NULL,
			data TEXT NOT NULL,
			PRIMARY KEY (channel, nick)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Save(ctx context.Context, snap Snapshot) error {
	type row struct {
		channel, nick string
		data          []byte
	}
	rows := make([]row, 0, snap.PlayerCount())
	for ch, ps := range snap.Players {
		for nick, p := range ps {
			b, err := json.Marshal(p)
			if err != nil {
				return fmt.Errorf("%w: %s/%s: %w", ErrEncode, ch, nick, err)
			}
			rows = append(rows, row{ch, nick, b})
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, q := range []string{`DELETE FROM players;`, `DELETE FROM channels;`} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	for _, ch := range snap.Channels {
		if _, err := tx.ExecContext(ctx, `INSERT INTO channels(name) VALUES (?);`, ch); err != nil {
			return err
		}
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO players(channel, nick, data) VALUES (?, ?, ?);`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.channel, r.nick, string(r.data)); err != nil {
			return err
		}
	}
	meta := map[string]string{
		"version":  strconv.Itoa(SnapshotVersion),
		"saved_at": snap.SavedAt.UTC().Format(time.RFC3339Nano),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO meta(key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value;`,
			k, v); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Load(ctx context.Context) (Snapshot, error) {
	snap := EmptySnapshot()

	var version, savedAt sql.NullString
	_ = s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'version';`).Scan(&version)
	_ = s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'saved_at';`).Scan(&savedAt)
	if version.Valid {
		v, err := strconv.Atoi(version.String)
		if err != nil {
			return Snapshot{}, fmt.Errorf("%w: version %q", ErrCorruptSnapshot, version.String)
		}
		snap.Version = v
	}
	if savedAt.Valid && savedAt.String != "" {
		t, err := time.Parse(time.RFC3339Nano, savedAt.String)
		if err != nil {
			return Snapshot{}, fmt.Errorf("%w: saved_at %q", ErrCorruptSnapshot, savedAt.String)
		}
		snap.SavedAt = t
	}

	chRows, err := s.db.QueryContext(ctx, `SELECT name FROM channels ORDER BY name;`)
	if err != nil {
		return Snapshot{}, err
	}
	for chRows.Next() {
		var name string
		if err := chRows.Scan(&name); err != nil {
			_ = chRows.Close()
			return Snapshot{}, err
		}
		snap.Channels = append(snap.Channels, name)
	}
	if err := chRows.Close(); err != nil {
		return Snapshot{}, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT channel, nick, data FROM players;`)
	if err != nil {
		return Snapshot{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var ch, nick, data string
		if err := rows.Scan(&ch, &nick, &data); err != nil {
			return Snapshot{}, err
		}
		var p player.Player
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return Snapshot{}, fmt.Errorf("%w: %s/%s: %w", ErrCorruptSnapshot, ch, nick, err)
		}
		if snap.Players[ch] == nil {
			snap.Players[ch] = map[string]player.Player{}
		}
		snap.Players[ch][nick] = p
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, err
	}
	if err := snap.normalize(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
