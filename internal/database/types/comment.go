package types

import (
	"time"

	"github.com/uptrace/bun"
)

// MaxCommentLength is the maximum number of characters in a comment.
const MaxCommentLength = 500

// Comment is a free-text reply to a post.
type Comment struct {
	bun.BaseModel `bun:"table:comments"`

	ID        string    `bun:",pk,notnull" json:"id"`
	PostID    string    `bun:",notnull"    json:"postId"`
	AuthorID  string    `bun:",notnull"    json:"authorId"`
	Author    string    `bun:",notnull"    json:"author"`
	Text      string    `bun:",notnull"    json:"text"`
	CreatedAt time.Time `bun:",notnull"    json:"createdAt"`
}
