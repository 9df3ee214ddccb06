package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"catalog-builder/models"
)

const batchSize = 50

// PostgresWriter mirrors the catalog and its capture history into PostgreSQL.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(dsn string) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 5; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS catalog_products (
			id          SERIAL PRIMARY KEY,
			position    INTEGER      NOT NULL,
			name        TEXT         NOT NULL,
			url         TEXT         NOT NULL,
			image_name  CHAR(40)     NOT NULL,
			categories  TEXT[]       NOT NULL DEFAULT '{}',
			description TEXT         NOT NULL DEFAULT '',
			tags        TEXT[]       NOT NULL DEFAULT '{}',
			created_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS catalog_captures (
			image_name  CHAR(40)     PRIMARY KEY,
			url         TEXT         NOT NULL,
			status      VARCHAR(16)  NOT NULL,
			error       TEXT         NOT NULL DEFAULT '',
			duration_ms BIGINT       NOT NULL DEFAULT 0,
			captured_at TIMESTAMPTZ,
			updated_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_catalog_products_image ON catalog_products(image_name);
		CREATE INDEX IF NOT EXISTS idx_catalog_captures_status ON catalog_captures(status);
	`)
	return err
}

// WriteCaptures replaces the stored product list with this run's catalog and
// upserts one capture row per distinct URL.
func (pw *PostgresWriter) WriteCaptures(products []*models.Product, results []*models.CaptureResult) error {
	tx, err := pw.db.Begin()
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM catalog_products"); err != nil {
		return fmt.Errorf("postgres: clear products: %w", err)
	}

	for i := 0; i < len(products); i += batchSize {
		end := min(i+batchSize, len(products))
		query, args := buildProductInsert(products[i:end], i)
		if _, err := tx.Exec(query, args...); err != nil {
			return fmt.Errorf("postgres: insert products: %w", err)
		}
	}

	unique := uniqueResults(results)
	now := time.Now().UTC()
	for i := 0; i < len(unique); i += batchSize {
		end := min(i+batchSize, len(unique))
		query, args := buildCaptureUpsert(unique[i:end], now)
		if _, err := tx.Exec(query, args...); err != nil {
			return fmt.Errorf("postgres: upsert captures: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// buildProductInsert returns a multi-row INSERT for batch. offset is the file
// position of batch[0].
func buildProductInsert(batch []*models.Product, offset int) (string, []interface{}) {
	const cols = 7
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*cols)

	for idx, p := range batch {
		base := idx * cols
		valueStrings = append(valueStrings,
			fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6, base+7))
		valueArgs = append(valueArgs,
			offset+idx, p.Name, p.URL, p.ImageName(),
			pq.Array(p.Categories), p.Description, pq.Array(p.Tags))
	}

	query := fmt.Sprintf(`
		INSERT INTO catalog_products (position, name, url, image_name, categories, description, tags)
		VALUES %s
	`, strings.Join(valueStrings, ","))
	return query, valueArgs
}

// buildCaptureUpsert returns a multi-row upsert for batch. A cached result
// keeps the captured_at of the run that actually took the screenshot.
func buildCaptureUpsert(batch []*models.CaptureResult, now time.Time) (string, []interface{}) {
	const cols = 6
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*cols)

	for idx, r := range batch {
		base := idx * cols
		valueStrings = append(valueStrings,
			fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6))

		errText := ""
		if r.Err != nil {
			errText = r.Err.Error()
		}
		var capturedAt interface{}
		if r.Status == models.CaptureCaptured {
			capturedAt = now
		}
		valueArgs = append(valueArgs,
			r.ImageName, r.URL, string(r.Status), errText, r.Duration.Milliseconds(), capturedAt)
	}

	query := fmt.Sprintf(`
		INSERT INTO catalog_captures (image_name, url, status, error, duration_ms, captured_at)
		VALUES %s
		ON CONFLICT (image_name) DO UPDATE SET
			status      = EXCLUDED.status,
			error       = EXCLUDED.error,
			duration_ms = EXCLUDED.duration_ms,
			captured_at = COALESCE(EXCLUDED.captured_at, catalog_captures.captured_at),
			updated_at  = NOW()
	`, strings.Join(valueStrings, ","))
	return query, valueArgs
}

// uniqueResults drops repeated URLs; an upsert may not touch one row twice.
func uniqueResults(results []*models.CaptureResult) []*models.CaptureResult {
	seen := make(map[string]struct{}, len(results))
	out := make([]*models.CaptureResult, 0, len(results))
	for _, r := range results {
		if _, dup := seen[r.ImageName]; dup {
			continue
		}
		seen[r.ImageName] = struct{}{}
		out = append(out, r)
	}
	return out
}

// FetchCaptureCounts reports how many stored captures are in each status.
func (pw *PostgresWriter) FetchCaptureCounts() (map[models.CaptureStatus]int, error) {
	rows, err := pw.db.Query(`
		SELECT status, COUNT(*)
		FROM catalog_captures
		GROUP BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch capture counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.CaptureStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		counts[models.CaptureStatus(status)] = n
	}
	return counts, rows.Err()
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}
