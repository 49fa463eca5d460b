package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jamesprial/go-reddit-harvester/pkg/types"
)

// SQLiteStore persists rows in a SQLite database, one row per post id. Saving a
// post that is already stored overwrites it.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initDB(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize sqlite schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initDB() error {
	query := `
	CREATE TABLE IF NOT EXISTS posts (
		post_id TEXT PRIMARY KEY,
		url TEXT,
		title TEXT NOT NULL,
		subtext TEXT,
		num_comments INTEGER NOT NULL DEFAULT 0,
		comments TEXT NOT NULL,
		harvested_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_harvested_at ON posts(harvested_at);
	`

	_, err := s.db.Exec(query)
	return err
}

// SaveRows stores rows in one transaction. With duplicate ids the last row wins.
func (s *SQLiteStore) SaveRows(ctx context.Context, rows []types.Post) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO posts (post_id, url, title, subtext, num_comments, comments, harvested_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(post_id) DO UPDATE SET
		url = excluded.url,
		title = excluded.title,
		subtext = excluded.subtext,
		num_comments = excluded.num_comments,
		comments = excluded.comments,
		harvested_at = excluded.harvested_at
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i := range rows {
		row := &rows[i]
		comments := row.Comments
		if comments == nil {
			comments = []string{}
		}
		commentsJSON, err := json.Marshal(comments)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, row.ID, row.URL, row.Title, row.SelfText, row.NumComments, string(commentsJSON), now); err != nil {
			return fmt.Errorf("failed to save post %s: %w", row.ID, err)
		}
	}

	return tx.Commit()
}

// Rows returns every stored post in insertion order.
func (s *SQLiteStore) Rows(ctx context.Context) ([]types.Post, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT post_id, url, title, subtext, num_comments, comments FROM posts ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []types.Post
	for rows.Next() {
		var (
			post         types.Post
			url, subtext sql.NullString
			commentsJSON string
		)
		if err := rows.Scan(&post.ID, &url, &post.Title, &subtext, &post.NumComments, &commentsJSON); err != nil {
			return nil, err
		}
		post.URL = url.String
		post.SelfText = subtext.String
		if err := json.Unmarshal([]byte(commentsJSON), &post.Comments); err != nil {
			return nil, fmt.Errorf("post %s has corrupt comments: %w", post.ID, err)
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// Count returns the number of stored posts.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts").Scan(&n)
	return n, err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
