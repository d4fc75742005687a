package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"promptpulse/internal/model"
)

// ErrNotFound is returned when an operation references a prompt id that is
// not in the catalog.
var ErrNotFound = errors.New("prompt not found")

// DB wraps a SQLite database holding the prompt catalog and its
// engagement events.
type DB struct{ sql *sql.DB }

func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
		return nil, err
	}
	db := &DB{sql: d}
	if err := db.migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error { return d.sql.Close() }

func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
	CREATE TABLE IF NOT EXISTS prompts (
	  id TEXT PRIMARY KEY,
	  title TEXT NOT NULL,
	  description TEXT,
	  category TEXT NOT NULL DEFAULT '',
	  tags TEXT NOT NULL DEFAULT '[]',
	  author_id TEXT NOT NULL DEFAULT '',
	  author_handle TEXT NOT NULL DEFAULT '',
	  featured INTEGER NOT NULL DEFAULT 0,
	  created_at INTEGER NOT NULL,
	  updated_at INTEGER NOT NULL,
	  views INTEGER NOT NULL DEFAULT 0,
	  copies INTEGER NOT NULL DEFAULT 0,
	  saves INTEGER NOT NULL DEFAULT 0,
	  rating_sum REAL NOT NULL DEFAULT 0,
	  rating_count INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_prompts_category ON prompts(category);
	CREATE TABLE IF NOT EXISTS events (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  ts INTEGER NOT NULL,
	  type TEXT NOT NULL,
	  prompt_id TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts);
	CREATE TABLE IF NOT EXISTS cursors (
	  key TEXT PRIMARY KEY,
	  value TEXT NOT NULL
	);
	`)
	return err
}

// UpsertPrompt inserts or replaces a prompt. Engagement counters are taken
// from the given prompt's stats, so registry refreshes carry them over.
func (d *DB) UpsertPrompt(ctx context.Context, p model.Prompt) error {
	if p.ID == "" {
		return errors.New("empty prompt id")
	}
	tags, _ := json.Marshal(p.Tags)
	ratingSum := p.Stats.Rating * float64(p.Stats.RatingCount)
	_, err := d.sql.ExecContext(ctx, `
	INSERT INTO prompts(id, title, description, category, tags, author_id, author_handle,
	  featured, created_at, updated_at, views, copies, saves, rating_sum, rating_count)
	VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
	ON CONFLICT(id) DO UPDATE SET
	  title=excluded.title, description=excluded.description, category=excluded.category,
	  tags=excluded.tags, author_id=excluded.author_id, author_handle=excluded.author_handle,
	  featured=excluded.featured, updated_at=excluded.updated_at,
	  views=excluded.views, copies=excluded.copies, saves=excluded.saves,
	  rating_sum=excluded.rating_sum, rating_count=excluded.rating_count`,
		p.ID, p.Title, p.Description, p.Category, string(tags), p.Author.ID, p.Author.Handle,
		boolToInt(p.Featured), p.CreatedAt.Unix(), p.UpdatedAt.Unix(),
		p.Stats.Views, p.Stats.Copies, p.Stats.Saves, ratingSum, p.Stats.RatingCount)
	return err
}

// GetPrompt returns a prompt by id, or ErrNotFound.
func (d *DB) GetPrompt(ctx context.Context, id string) (model.Prompt, error) {
	row := d.sql.QueryRowContext(ctx, promptSelect+` WHERE id=?`, id)
	p, err := scanPrompt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Prompt{}, ErrNotFound
	}
	return p, err
}

// ListPrompts returns the full candidate pool in insertion order.
func (d *DB) ListPrompts(ctx context.Context) ([]model.Prompt, error) {
	rows, err := d.sql.QueryContext(ctx, promptSelect+` ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Prompt
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Search returns prompts whose title, description, or tags contain the query
// (case-insensitive), most viewed first.
func (d *DB) Search(ctx context.Context, query string, limit int) ([]model.Prompt, error) {
	q := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.sql.QueryContext(ctx, promptSelect+`
	WHERE lower(title) LIKE ? OR lower(description) LIKE ? OR lower(tags) LIKE ?
	ORDER BY views DESC LIMIT ?`, q, q, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Prompt
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// NameCount pairs a category or tag name with how many prompts carry it.
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Categories returns category counts, descending, ties by name.
func (d *DB) Categories(ctx context.Context) ([]NameCount, error) {
	rows, err := d.sql.QueryContext(ctx,
		`SELECT category, COUNT(*) FROM prompts WHERE category != '' GROUP BY category ORDER BY COUNT(*) DESC, category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []NameCount
	for rows.Next() {
		var nc NameCount
		if err := rows.Scan(&nc.Name, &nc.Count); err != nil {
			return nil, err
		}
		out = append(out, nc)
	}
	return out, rows.Err()
}

// Tags returns tag counts across the catalog, descending, ties by name.
// Tags are stored as JSON so counting happens here, not in SQL.
func (d *DB) Tags(ctx context.Context) ([]NameCount, error) {
	prompts, err := d.ListPrompts(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, p := range prompts {
		seen := make(map[string]struct{})
		for _, t := range p.Tags {
			lt := strings.ToLower(t)
			if _, dup := seen[lt]; dup {
				continue
			}
			seen[lt] = struct{}{}
			counts[lt]++
		}
	}
	out := make([]NameCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, NameCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// RecordEvent stores an engagement event and bumps the matching counter.
// The prompt's updated_at is left alone: freshness tracks content edits,
// not traffic.
func (d *DB) RecordEvent(ctx context.Context, ts time.Time, typ, promptID string) error {
	var col string
	switch typ {
	case "view":
		col = "views"
	case "copy":
		col = "copies"
	case "save":
		col = "saves"
	default:
		return errors.New("unknown event type: " + typ)
	}
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	res, err := tx.ExecContext(ctx, `UPDATE prompts SET `+col+` = `+col+` + 1 WHERE id=?`, promptID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO events(ts, type, prompt_id) VALUES(?,?,?)`, ts.Unix(), typ, promptID); err != nil {
		return err
	}
	return tx.Commit()
}

// AddRating folds one rating into the prompt's running average.
func (d *DB) AddRating(ctx context.Context, promptID string, rating float64) error {
	if rating < 0 || rating > 5 {
		return errors.New("rating out of range")
	}
	res, err := d.sql.ExecContext(ctx,
		`UPDATE prompts SET rating_sum = rating_sum + ?, rating_count = rating_count + 1 WHERE id=?`,
		rating, promptID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// LoadEvents returns events in [start, end], optionally filtered by type.
func (d *DB) LoadEvents(ctx context.Context, start, end time.Time, typ string) ([]model.EngagementEvent, error) {
	var rows *sql.Rows
	var err error
	if typ == "" {
		rows, err = d.sql.QueryContext(ctx, `SELECT ts, type, prompt_id FROM events WHERE ts>=? AND ts<=? ORDER BY ts`, start.Unix(), end.Unix())
	} else {
		rows, err = d.sql.QueryContext(ctx, `SELECT ts, type, prompt_id FROM events WHERE ts>=? AND ts<=? AND type=? ORDER BY ts`, start.Unix(), end.Unix(), typ)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.EngagementEvent
	for rows.Next() {
		var ts int64
		var e model.EngagementEvent
		if err := rows.Scan(&ts, &e.Type, &e.PromptID); err != nil {
			return nil, err
		}
		e.Timestamp = time.Unix(ts, 0).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountPrompts returns the catalog size.
func (d *DB) CountPrompts(ctx context.Context) (int, error) {
	var n int
	err := d.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM prompts`).Scan(&n)
	return n, err
}

// SaveCursor stores a refresh bookmark.
func (d *DB) SaveCursor(ctx context.Context, key, value string) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO cursors(key, value) VALUES(?,?) ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, value)
	return err
}

// LoadCursor returns a stored bookmark, or "" if absent.
func (d *DB) LoadCursor(ctx context.Context, key string) (string, error) {
	var v string
	err := d.sql.QueryRowContext(ctx, `SELECT value FROM cursors WHERE key=?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}

const promptSelect = `SELECT id, title, description, category, tags, author_id, author_handle,
  featured, created_at, updated_at, views, copies, saves, rating_sum, rating_count FROM prompts`

type scanner interface{ Scan(dest ...any) error }

func scanPrompt(row scanner) (model.Prompt, error) {
	var p model.Prompt
	var desc sql.NullString
	var tags string
	var featured int
	var created, updated int64
	var ratingSum float64
	err := row.Scan(&p.ID, &p.Title, &desc, &p.Category, &tags, &p.Author.ID, &p.Author.Handle,
		&featured, &created, &updated, &p.Stats.Views, &p.Stats.Copies, &p.Stats.Saves,
		&ratingSum, &p.Stats.RatingCount)
	if err != nil {
		return p, err
	}
	p.Description = desc.String
	_ = json.Unmarshal([]byte(tags), &p.Tags)
	p.Featured = featured != 0
	p.CreatedAt = time.Unix(created, 0).UTC()
	p.UpdatedAt = time.Unix(updated, 0).UTC()
	if p.Stats.RatingCount > 0 {
		p.Stats.Rating = ratingSum / float64(p.Stats.RatingCount)
	}
	return p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
