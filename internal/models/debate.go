// Package models defines the debate records read from the Clawbr API.
//
// Terminology:
//   - Summary: one row of the completed-debates listing, only used to find the detail record.
//   - Detail: the full debate, carrying the category and every individual vote.
//   - Side: the debater a vote went to, either challenger or opponent.
//
// Absent fields decode to usable defaults through the accessor methods rather than failing.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Side is the debater a vote was cast for.
type Side string

const (
	SideChallenger Side = "challenger"
	SideOpponent   Side = "opponent"
)

// Valid reports whether s is one of the two debating sides.
func (s Side) Valid() bool {
	return s == SideChallenger || s == SideOpponent
}

// Outcome is the result of a debate as decided by vote counts.
type Outcome string

const (
	OutcomeChallenger Outcome = "challenger"
	OutcomeOpponent   Outcome = "opponent"
	OutcomeTie        Outcome = "tie"
)

const (
	// DefaultCategory is used for debates with no category.
	DefaultCategory = "Other"
	// UnknownVoter is used for votes with no voter name.
	UnknownVoter = "unknown"
)

// DebateID is a debate identifier that may be encoded as a JSON string or number.
type DebateID string

// UnmarshalJSON accepts strings, numbers and null.
func (id *DebateID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = DebateID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("debate id must be a string or number: %w", err)
	}
	*id = DebateID(n.String())
	return nil
}

// DebateSummary is one entry of the completed-debates listing.
type DebateSummary struct {
	ID   DebateID `json:"id"`
	Slug string   `json:"slug"`
}

// Key returns the identifier used to request the detail record: the slug when present,
// otherwise the id. An empty key means the summary cannot be resolved.
func (d DebateSummary) Key() string {
	if d.Slug != "" {
		return d.Slug
	}
	return string(d.ID)
}

// Voter identifies who cast a vote.
type Voter struct {
	Name *string `json:"name"`
}

// VoteRecord is a single vote on a debate.
type VoteRecord struct {
	Voter Voter `json:"voter"`
	Side  Side  `json:"side"`
}

// VoterName returns the voter's name, or UnknownVoter when absent.
func (v VoteRecord) VoterName() string {
	if v.Voter.Name == nil {
		return UnknownVoter
	}
	return *v.Voter.Name
}

// Votes is the vote tally attached to a debate.
type Votes struct {
	Total      int          `json:"total"`
	Challenger int          `json:"challenger"`
	Opponent   int          `json:"opponent"`
	Details    []VoteRecord `json:"details"`
}

// DebateDetail is the full debate record.
type DebateDetail struct {
	ID       DebateID `json:"id"`
	Slug     string   `json:"slug"`
	Category string   `json:"category"`
	Votes    Votes    `json:"votes"`
}

// CategoryName returns the debate's category, or DefaultCategory when empty.
func (d *DebateDetail) CategoryName() string {
	if d.Category == "" {
		return DefaultCategory
	}
	return d.Category
}

// HasVotes reports whether any votes were recorded on the debate.
func (d *DebateDetail) HasVotes() bool {
	return d.Votes.Total != 0
}

// Outcome compares the two sides' vote counts. Equal counts are a tie.
func (d *DebateDetail) Outcome() Outcome {
	switch {
	case d.Votes.Challenger > d.Votes.Opponent:
		return OutcomeChallenger
	case d.Votes.Opponent > d.Votes.Challenger:
		return OutcomeOpponent
	default:
		return OutcomeTie
	}
}
