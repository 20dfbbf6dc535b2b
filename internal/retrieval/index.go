package retrieval

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sheikhmdsamiul/swiftme/internal/storage"
)

// IndexFile is the database file kept inside the index directory.
const IndexFile = "experience.db"

// ErrIndexNotFound means no persisted index exists yet. It is an expected
// outcome before the first profile is indexed.
var ErrIndexNotFound = errors.New("experience index not found")

// diskIndex persists chunks to <dir>/experience.db. The database is opened
// on first use; a missing file is only created by append.
type diskIndex struct {
	dir string
	db  *sql.DB
}

func (d *diskIndex) path() string { return filepath.Join(d.dir, IndexFile) }

func (d *diskIndex) open(create bool) error {
	if d.db != nil {
		return nil
	}
	if !create {
		if _, err := os.Stat(d.path()); errors.Is(err, os.ErrNotExist) {
			return ErrIndexNotFound
		} else if err != nil {
			return fmt.Errorf("checking index file: %w", err)
		}
	} else if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}
	db, err := storage.OpenDB(d.path(), storage.SchemaIndex)
	if err != nil {
		return err
	}
	d.db = db
	return nil
}

// load reads every persisted chunk in insertion order. An absent or empty
// index is ErrIndexNotFound.
func (d *diskIndex) load(ctx context.Context) ([]Chunk, error) {
	if err := d.open(false); err != nil {
		return nil, err
	}
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, source_name, text_chunk, embedding, created_at
		FROM experience_chunks ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var (
			c         Chunk
			blob      []byte
			createdAt string
		)
		if err := rows.Scan(&c.ID, &c.SourceName, &c.Text, &blob, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		if c.Embedding, err = decodeFloat32s(blob); err != nil {
			return nil, fmt.Errorf("decoding embedding for %s: %w", c.ID, err)
		}
		if c.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at for %s: %w", c.ID, err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	if len(chunks) == 0 {
		return nil, ErrIndexNotFound
	}
	return chunks, nil
}

// append writes chunks in one transaction. Either all are durable when it
// returns nil, or none are.
func (d *diskIndex) append(ctx context.Context, chunks []Chunk) error {
	if err := d.open(true); err != nil {
		return err
	}
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning insert transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO experience_chunks (id, source_name, text_chunk, embedding, created_at)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		_, err := stmt.ExecContext(ctx, c.ID, c.SourceName, c.Text, encodeFloat32s(c.Embedding), c.CreatedAt.UTC().Format(time.RFC3339))
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting chunk %s: %w", c.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing chunks: %w", err)
	}
	return nil
}

func (d *diskIndex) close() error {
	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	return err
}
