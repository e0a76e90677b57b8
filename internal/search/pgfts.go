package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements search using PostgreSQL full-text search as a
// fallback when Meilisearch is unavailable.
type PgFTS struct {
	db *sql.DB
}

func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true. If Postgres is down the whole API is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search runs a UNION ALL over concerns and posts with plainto_tsquery
// and ts_rank, using ts_headline for snippets.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
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

	tsQuery := "plainto_tsquery('english', $1)"
	args := []any{q.Text}

	var subQueries []string

	if q.FilterType == "" || q.FilterType == ResultConcern {
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'concern'::text AS type, c.id, c.category AS title,
				ts_headline('english', coalesce(c.ai_summary, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				c.status, c.category,
				ts_rank(c.fts, %s) AS rank
			FROM concerns c
			WHERE c.fts @@ %s`, tsQuery, tsQuery, tsQuery))
	}

	if q.FilterType == "" || q.FilterType == ResultPost {
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'post'::text AS type, p.id, p.author_name AS title,
				ts_headline('english', coalesce(p.content, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				''::text AS status, ''::text AS category,
				ts_rank(p.fts, %s) AS rank
			FROM posts p
			WHERE p.fts @@ %s`, tsQuery, tsQuery, tsQuery))
	}

	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub",
		strings.Join(subQueries, " UNION ALL "))

	dataSQL := fmt.Sprintf(`SELECT type, id, title, snippet, status, category
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`,
		strings.Join(subQueries, " UNION ALL "),
		limit, offset)

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
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.Status, &r.Category); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all searchable records for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]ConcernRecord, []PostRecord, error) {
	concernRows, err := p.db.QueryContext(ctx, `
		SELECT id, ai_summary, category, status
		FROM concerns
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load concerns: %w", err)
	}
	defer concernRows.Close()

	concerns := make([]ConcernRecord, 0)
	for concernRows.Next() {
		var c ConcernRecord
		if err := concernRows.Scan(&c.ID, &c.Summary, &c.Category, &c.Status); err != nil {
			return nil, nil, fmt.Errorf("scan concern: %w", err)
		}
		concerns = append(concerns, c)
	}
	if err := concernRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate concerns: %w", err)
	}

	postRows, err := p.db.QueryContext(ctx, `
		SELECT id, content, author_name
		FROM posts
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load posts: %w", err)
	}
	defer postRows.Close()

	posts := make([]PostRecord, 0)
	for postRows.Next() {
		var pr PostRecord
		if err := postRows.Scan(&pr.ID, &pr.Content, &pr.AuthorName); err != nil {
			return nil, nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, pr)
	}
	if err := postRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate posts: %w", err)
	}

	return concerns, posts, nil
}
