package types

import (
	"time"

	"github.com/uptrace/bun"
)

// VoteType is one of the three mutually exclusive vote choices.
type VoteType string

const (
	VoteTypeAgree    VoteType = "agree"
	VoteTypeMixed    VoteType = "mixed"
	VoteTypeDisagree VoteType = "disagree"
)

// VoteTypes lists every valid vote type in display order.
var VoteTypes = []VoteType{VoteTypeAgree, VoteTypeMixed, VoteTypeDisagree}

// Valid reports whether the vote type is one of the known choices.
func (v VoteType) Valid() bool {
	switch v {
	case VoteTypeAgree, VoteTypeMixed, VoteTypeDisagree:
		return true
	}
	return false
}

// String returns the string representation of the vote type.
func (v VoteType) String() string {
	return string(v)
}

// Vote is one voter's current choice on one post.
// At most one row exists per (post, voter) pair.
type Vote struct {
	bun.BaseModel `bun:"table:votes"`

	PostID    string    `bun:",pk,notnull"   json:"postId"`
	VoterID   string    `bun:",pk,notnull"   json:"voterId"`
	VoteType  VoteType  `bun:",notnull"      json:"voteType"`
	CreatedAt time.Time `bun:",notnull"      json:"createdAt"`
}
