package commutedb

import (
	"context"
	"fmt"
)

var countedTables = []string{"trip_logs", "commute_patterns", "schema_migrations"}

// TableCounts reports row counts for the store's tables. The debug page uses it.
func (c *Client) TableCounts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, len(countedTables))
	for _, table := range countedTables {
		var count int
		if err := c.DB.GetContext(ctx, &count, "SELECT COUNT(*) FROM "+table); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		counts[table] = count
	}
	return counts, nil
}
