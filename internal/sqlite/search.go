package sqlite

import (
	"context"
	"strings"

	"github.com/rpggio/lectern/internal/domain/presentation"
)

// Search performs a full-text search over presentation titles, descriptions,
// speakers and tags. Each whitespace separated term is matched as a prefix.
func (r *PresentationRepository) Search(ctx context.Context, text string, limit int) ([]presentation.Presentation, error) {
	match := ftsQuery(text)
	if match == "" {
		return nil, nil
	}

	query := `
		SELECT ` + presentationColumns + `
		FROM presentations_fts
		JOIN presentations p ON p.rowid = presentations_fts.rowid
		WHERE presentations_fts MATCH ?
		ORDER BY rank
	`
	args := []interface{}{match}

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	return r.query(ctx, query, args...)
}

// ftsQuery quotes each term so user input cannot inject FTS5 operators.
func ftsQuery(text string) string {
	terms := strings.Fields(text)
	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.ReplaceAll(term, `"`, `""`)
		quoted = append(quoted, `"`+term+`"*`)
	}
	return strings.Join(quoted, " ")
}
