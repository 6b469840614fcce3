package types

import (
	"time"

	"github.com/uptrace/bun"
)

// Category identifies who authored a post.
type Category string

const (
	CategoryCentralGovernment Category = "Central Government"
	CategoryStateGovernment   Category = "State Government"
	CategoryCitizen           Category = "Citizen"
)

// Valid reports whether the category is known.
func (c Category) Valid() bool {
	switch c {
	case CategoryCentralGovernment, CategoryStateGovernment, CategoryCitizen:
		return true
	}
	return false
}

// IsGovernment reports whether the category belongs to a government account.
func (c Category) IsGovernment() bool {
	return c == CategoryCentralGovernment || c == CategoryStateGovernment
}

// Post is a proposal under discussion.
type Post struct {
	bun.BaseModel `bun:"table:posts"`

	ID               string    `bun:",pk,notnull"                json:"id"`
	AuthorID         string    `bun:",notnull"                   json:"authorId"`
	Author           string    `bun:",notnull"                   json:"author"`
	Category         Category  `bun:",notnull"                   json:"category"`
	Title            string    `bun:",notnull"                   json:"title"`
	ShortDescription string    `bun:",notnull"                   json:"shortDescription"`
	FullDescription  string    `bun:",notnull"                   json:"fullDescription"`
	MediaURL         string    `bun:",nullzero"                  json:"mediaUrl,omitempty"`
	TopicTags        []string  `bun:",array"                     json:"topicTags"`
	AgreeCount       int64     `bun:",notnull,default:0"         json:"agreeCount"`
	MixedCount       int64     `bun:",notnull,default:0"         json:"mixedCount"`
	DisagreeCount    int64     `bun:",notnull,default:0"         json:"disagreeCount"`
	TotalVotes       int64     `bun:",notnull,default:0"         json:"totalVotes"`
	AISummary        []string  `bun:",array"                     json:"aiSummary"`
	AICommentSummary string    `bun:",nullzero"                  json:"aiCommentSummary,omitempty"`
	CreatedAt        time.Time `bun:",notnull,default:current_timestamp" json:"createdAt"`
}

// Tally returns the post's vote counters.
func (p *Post) Tally() Tally {
	return Tally{
		Agree:    p.AgreeCount,
		Mixed:    p.MixedCount,
		Disagree: p.DisagreeCount,
		Total:    p.TotalVotes,
	}
}

// SetTally overwrites the post's vote counters.
func (p *Post) SetTally(t Tally) {
	p.AgreeCount = t.Agree
	p.MixedCount = t.Mixed
	p.DisagreeCount = t.Disagree
	p.TotalVotes = t.Total
}

// PostTally is the live view of a post's tally published after every vote.
type PostTally struct {
	PostID         string         `json:"postId"`
	Tally          Tally          `json:"tally"`
	SentimentTrend SentimentTrend `json:"sentimentTrend"`
}

// NewPostTally builds the live view of a tally.
func NewPostTally(postID string, t Tally) PostTally {
	return PostTally{
		PostID:         postID,
		Tally:          t,
		SentimentTrend: t.Sentiment(),
	}
}

// FeedSort is the ordering applied to a feed.
type FeedSort string

const (
	FeedSortNew      FeedSort = "new"
	FeedSortTrending FeedSort = "trending"
	FeedSortAgree    FeedSort = "agree"
	FeedSortDisagree FeedSort = "disagree"
)

// Valid reports whether the sort is known.
func (s FeedSort) Valid() bool {
	switch s {
	case FeedSortNew, FeedSortTrending, FeedSortAgree, FeedSortDisagree:
		return true
	}
	return false
}

// FeedFilter narrows and orders a feed.
type FeedFilter struct {
	Categories []Category
	Query      string
	Topics     []string
	Sort       FeedSort
	Limit      int
}
