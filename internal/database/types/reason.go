package types

import (
	"time"

	"github.com/uptrace/bun"
)

// ReasonTag is a predefined reason a voter can give for their vote.
type ReasonTag string

const (
	ReasonEconomic       ReasonTag = "Economic"
	ReasonEmployment     ReasonTag = "Employment"
	ReasonEnvironment    ReasonTag = "Environment"
	ReasonInclusion      ReasonTag = "Inclusion"
	ReasonImplementation ReasonTag = "Implementation"
	ReasonCorruptionRisk ReasonTag = "Corruption Risk"
	ReasonOther          ReasonTag = "Other"
)

// ReasonTags lists every reason tag in display order.
var ReasonTags = []ReasonTag{
	ReasonEconomic,
	ReasonEmployment,
	ReasonEnvironment,
	ReasonInclusion,
	ReasonImplementation,
	ReasonCorruptionRisk,
	ReasonOther,
}

// Valid reports whether the reason tag is known.
func (r ReasonTag) Valid() bool {
	for _, tag := range ReasonTags {
		if r == tag {
			return true
		}
	}
	return false
}

// VoteReason records why a voter voted the way they did.
type VoteReason struct {
	bun.BaseModel `bun:"table:vote_reasons"`

	PostID    string    `bun:",pk,notnull" json:"postId"`
	VoterID   string    `bun:",pk,notnull" json:"voterId"`
	Reason    ReasonTag `bun:",notnull"    json:"reason"`
	CreatedAt time.Time `bun:",notnull"    json:"createdAt"`
}
