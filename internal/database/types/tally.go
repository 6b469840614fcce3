package types

// SentimentTrend is a three-valued classification of a post's tally.
type SentimentTrend string

const (
	SentimentMostlyAgree    SentimentTrend = "Mostly Agree"
	SentimentMixed          SentimentTrend = "Mixed"
	SentimentMostlyDisagree SentimentTrend = "Mostly Disagree"
)

// SentimentTrends lists every valid sentiment trend.
var SentimentTrends = []SentimentTrend{SentimentMostlyAgree, SentimentMixed, SentimentMostlyDisagree}

const (
	// MostlyAgreeThreshold is the agree share above which a post is mostly agreed with.
	MostlyAgreeThreshold = 0.6
	// MostlyDisagreeThreshold is the agree share below which a post is mostly disagreed with.
	MostlyDisagreeThreshold = 0.4
)

// Tally holds the three vote counters of a post and their sum.
type Tally struct {
	Agree    int64 `json:"agree"`
	Mixed    int64 `json:"mixed"`
	Disagree int64 `json:"disagree"`
	Total    int64 `json:"total"`
}

// Percentages holds the share of each vote type as a 0-100 value.
type Percentages struct {
	Agree    float64 `json:"agree"`
	Mixed    float64 `json:"mixed"`
	Disagree float64 `json:"disagree"`
}

// Count returns the counter for the given vote type.
func (t Tally) Count(v VoteType) int64 {
	switch v {
	case VoteTypeAgree:
		return t.Agree
	case VoteTypeMixed:
		return t.Mixed
	case VoteTypeDisagree:
		return t.Disagree
	}
	return 0
}

// Add increments the counter for the vote type and the total.
func (t *Tally) Add(v VoteType) {
	if counter := t.counter(v); counter != nil {
		*counter++
		t.Total++
	}
}

// Remove decrements the counter for the vote type and the total, both floored at 0.
// It returns false when a floor was hit, which means the tally was already inconsistent.
func (t *Tally) Remove(v VoteType) bool {
	counter := t.counter(v)
	if counter == nil {
		return true
	}

	ok := *counter > 0 && t.Total > 0
	*counter = max(0, *counter-1)
	t.Total = max(0, t.Total-1)

	return ok
}

// Consistent reports whether the total equals the sum of the counters
// and no counter is negative.
func (t Tally) Consistent() bool {
	if t.Agree < 0 || t.Mixed < 0 || t.Disagree < 0 {
		return false
	}
	return t.Agree+t.Mixed+t.Disagree == t.Total
}

// Sentiment derives the sentiment trend from the tally.
func (t Tally) Sentiment() SentimentTrend {
	return DeriveSentiment(t)
}

// Percentages returns the share of each vote type.
// All shares are 0 when no votes have been cast.
func (t Tally) Percentages() Percentages {
	if t.Total == 0 {
		return Percentages{}
	}

	total := float64(t.Total)

	return Percentages{
		Agree:    float64(t.Agree) / total * 100,
		Mixed:    float64(t.Mixed) / total * 100,
		Disagree: float64(t.Disagree) / total * 100,
	}
}

func (t *Tally) counter(v VoteType) *int64 {
	switch v {
	case VoteTypeAgree:
		return &t.Agree
	case VoteTypeMixed:
		return &t.Mixed
	case VoteTypeDisagree:
		return &t.Disagree
	}
	return nil
}

// DeriveSentiment classifies a tally by its agree share.
// A post without votes is Mixed.
func DeriveSentiment(t Tally) SentimentTrend {
	if t.Total <= 0 {
		return SentimentMixed
	}

	agreeShare := float64(t.Agree) / float64(t.Total)

	switch {
	case agreeShare > MostlyAgreeThreshold:
		return SentimentMostlyAgree
	case agreeShare < MostlyDisagreeThreshold:
		return SentimentMostlyDisagree
	default:
		return SentimentMixed
	}
}
