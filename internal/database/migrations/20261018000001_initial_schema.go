package migrations

import (
	"context"
	"fmt"

	"github.com/ora-civic/ora/internal/database/types"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		tables := []struct {
			model any
			name  string
		}{
			{(*types.Post)(nil), "posts"},
			{(*types.Vote)(nil), "votes"},
			{(*types.Comment)(nil), "comments"},
			{(*types.VoteReason)(nil), "vote_reasons"},
		}

		for _, table := range tables {
			_, err := db.NewCreateTable().
				Model(table.model).
				IfNotExists().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to create table %s: %w", table.name, err)
			}
		}

		constraints := []string{
			`ALTER TABLE posts ADD CONSTRAINT posts_tally_non_negative
				CHECK (agree_count >= 0 AND mixed_count >= 0 AND disagree_count >= 0)`,
			`ALTER TABLE posts ADD CONSTRAINT posts_tally_total
				CHECK (total_votes = agree_count + mixed_count + disagree_count)`,
			`ALTER TABLE votes ADD CONSTRAINT votes_post_fk
				FOREIGN KEY (post_id) REFERENCES posts (id)`,
			`ALTER TABLE votes ADD CONSTRAINT votes_type_check
				CHECK (vote_type IN ('agree', 'mixed', 'disagree'))`,
			`ALTER TABLE comments ADD CONSTRAINT comments_post_fk
				FOREIGN KEY (post_id) REFERENCES posts (id)`,
			`ALTER TABLE comments ADD CONSTRAINT comments_text_length
				CHECK (char_length(text) BETWEEN 1 AND 500)`,
			`ALTER TABLE vote_reasons ADD CONSTRAINT vote_reasons_post_fk
				FOREIGN KEY (post_id) REFERENCES posts (id)`,
		}

		for _, constraint := range constraints {
			if _, err := db.ExecContext(ctx, constraint); err != nil {
				return fmt.Errorf("failed to add constraint: %w", err)
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		for _, table := range []string{"vote_reasons", "comments", "votes", "posts"} {
			if _, err := db.NewDropTable().Table(table).IfExists().Cascade().Exec(ctx); err != nil {
				return fmt.Errorf("failed to drop table %s: %w", table, err)
			}
		}
		return nil
	})
}
