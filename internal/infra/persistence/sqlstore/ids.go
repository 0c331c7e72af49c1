package sqlstore

import (
	"context"
	"fmt"
	"regexp"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether name can be spliced into SQL as a table or
// column name.
func ValidIdentifier(name string) bool { return identRe.MatchString(name) }

// ScanIDs runs query and collects the single integer column it returns. The
// rows are fully drained and closed before returning so the caller may issue
// further statements on the same transaction.
func ScanIDs(ctx context.Context, q Querier, query string, args ...any) ([]int64, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, Wrap("select ids", err)
	}
	defer func() { _ = rows.Close() }()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, Wrap("scan id", fmt.Errorf("scan: %w", err))
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, Wrap("iterate ids", err)
	}
	return ids, nil
}
