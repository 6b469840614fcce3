package models

import (
	"database/sql"
	"testing"

	"github.com/ora-civic/ora/internal/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.uber.org/zap"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	// The connector only dials on first use; these tests only render SQL.
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithAddr("localhost:0")))
	db := bun.NewDB(sqldb, pgdialect.New())
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func TestListQuery(t *testing.T) {
	t.Parallel()

	model := NewPost(newTestDB(t), zap.NewNop())

	tests := []struct {
		name     string
		filter   types.FeedFilter
		contains []string
		excludes []string
	}{
		{
			name:     "no filter",
			filter:   types.FeedFilter{},
			contains: []string{`ORDER BY "created_at" DESC`, `LIMIT 500`},
			excludes: []string{`category IN`, `topic_tags &&`},
		},
		{
			name: "categories",
			filter: types.FeedFilter{
				Categories: []types.Category{types.CategoryCitizen, types.CategoryStateGovernment},
			},
			contains: []string{`category IN ('Citizen', 'State Government')`},
			excludes: []string{`topic_tags &&`},
		},
		{
			name:     "topics",
			filter:   types.FeedFilter{Topics: []string{"water", "roads"}},
			contains: []string{`topic_tags && '{`, `water`, `roads`},
			excludes: []string{`category IN`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			query := model.listQuery(tt.filter).String()
			for _, want := range tt.contains {
				assert.Contains(t, query, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, query, unwanted)
			}
		})
	}
}
