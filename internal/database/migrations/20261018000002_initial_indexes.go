package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	indexes := []struct {
		name  string
		query string
	}{
		{"idx_posts_created_at", "CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts (created_at DESC)"},
		{"idx_posts_category", "CREATE INDEX IF NOT EXISTS idx_posts_category ON posts (category, created_at DESC)"},
		{"idx_posts_topic_tags", "CREATE INDEX IF NOT EXISTS idx_posts_topic_tags ON posts USING GIN (topic_tags)"},
		{"idx_comments_post_created", "CREATE INDEX IF NOT EXISTS idx_comments_post_created ON comments (post_id, created_at DESC)"},
		{"idx_vote_reasons_post", "CREATE INDEX IF NOT EXISTS idx_vote_reasons_post ON vote_reasons (post_id, created_at)"},
	}

	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		for _, index := range indexes {
			if _, err := db.ExecContext(ctx, index.query); err != nil {
				return fmt.Errorf("failed to create index %s: %w", index.name, err)
			}
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		for _, index := range indexes {
			if _, err := db.ExecContext(ctx, "DROP INDEX IF EXISTS "+index.name); err != nil {
				return fmt.Errorf("failed to drop index %s: %w", index.name, err)
			}
		}
		return nil
	})
}
