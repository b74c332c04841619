package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true; if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search queries documents with plainto_tsquery and ts_rank, restricted to
// the caller's apps, with ts_headline for snippets.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" || len(q.AppIDs) == 0 {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	const tsQuery = "plainto_tsquery('english', $1)"
	args := []any{q.Text, q.AppIDs}

	where := fmt.Sprintf("d.fts @@ %s AND d.app_id = ANY($2)", tsQuery)

	countSQL := fmt.Sprintf(`SELECT count(*) FROM documents d WHERE %s`, where)

	dataSQL := fmt.Sprintf(`
		SELECT d.id, d.title,
			ts_headline('english', coalesce(d.content, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
			d.slug, d.app_id, a.name,
			ts_rank(d.fts, %s) AS rank
		FROM documents d
		JOIN apps a ON a.id = d.app_id
		WHERE %s
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`, tsQuery, tsQuery, where, limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var rank float64
		if err := rows.Scan(&r.ID, &r.Title, &r.Snippet, &r.Slug, &r.AppID, &r.AppName, &rank); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all indexable documents for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]DocumentRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT d.id, d.title, d.content, d.slug, d.app_id, a.name
		FROM documents d
		JOIN apps a ON a.id = d.app_id
	`)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	defer rows.Close()

	documents := make([]DocumentRecord, 0)
	for rows.Next() {
		var d DocumentRecord
		if err := rows.Scan(&d.ID, &d.Title, &d.Content, &d.Slug, &d.AppID, &d.AppName); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		documents = append(documents, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return documents, nil
}
