package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rpattn/slicereports/internal/db"
	"github.com/rpattn/slicereports/internal/metrics"
)

// pageQueries renders the count and page statements for q. Both share the
// same FROM/WHERE text and arguments; the page query appends LIMIT/OFFSET.
func pageQueries(q compiledQuery, columns string, page, perPage int) (countSQL string, countArgs []any, pageSQL string, pageArgs []any) {
	root := q.plan.rootAlias()
	fromWhere := q.fromWhere()

	countSQL = fmt.Sprintf("SELECT COUNT(DISTINCT %s.id) %s", root, fromWhere)
	countArgs = append([]any{}, q.builder.args...)

	pageBuilder := &sqlBuilder{args: append([]any{}, q.builder.args...)}
	limit := pageBuilder.bind(perPage)
	offset := pageBuilder.bind(page * perPage)

	selectKw := "SELECT "
	if q.plan.Distinct() {
		selectKw = "SELECT DISTINCT "
	}
	pageSQL = fmt.Sprintf("%s%s %s ORDER BY %s.id LIMIT %s OFFSET %s", selectKw, columns, fromWhere, root, limit, offset)
	return countSQL, countArgs, pageSQL, pageBuilder.args
}

// executePage runs the count and then fetches one page of root rows.
func executePage[T any](ctx context.Context, exec db.DBTX, obs PhaseObserver, q compiledQuery, columns string, page, perPage int) (int64, []T, error) {
	countSQL, countArgs, pageSQL, pageArgs := pageQueries(q, columns, page, perPage)
	entity := string(q.plan.target)

	start := time.Now()
	var total int64
	if err := exec.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return 0, nil, fmt.Errorf("failed to count %s: %w", entity, err)
	}
	obs.Observe(entity, metrics.PhaseCount, start)

	start = time.Now()
	rows, err := exec.Query(ctx, pageSQL, pageArgs...)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to fetch %s: %w", entity, err)
	}
	items, err := pgx.CollectRows(rows, pgx.RowToStructByName[T])
	if err != nil {
		return 0, nil, fmt.Errorf("failed to scan %s: %w", entity, err)
	}
	obs.Observe(entity, metrics.PhaseFetch, start)

	return total, items, nil
}
