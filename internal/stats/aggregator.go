// Package stats folds debate records into win and vote tallies.
//
// Each debate with at least one vote contributes once to the overall win counters and
// the tally of its category, and every vote for a recognised side contributes once to
// its voter's tally. Debates with zero total votes are ignored entirely.
package stats

import (
	"github.com/rewired-gh/votestudy/internal/models"
)

// Aggregator accumulates tallies over a single linear pass of debates. It is not safe
// for concurrent use.
type Aggregator struct {
	DebatesWithVotes int
	ChallengerWins   int
	OpponentWins     int
	Ties             int

	Categories *Tally[CategoryCounts]
	Voters     *Tally[VoterCounts]
}

// NewAggregator returns an Aggregator with empty tallies.
func NewAggregator() *Aggregator {
	return &Aggregator{
		Categories: NewTally[CategoryCounts](),
		Voters:     NewTally[VoterCounts](),
	}
}

// Add folds one debate into the tallies. It returns false when the debate had no votes
// and was skipped.
func (a *Aggregator) Add(d *models.DebateDetail) bool {
	if d == nil || !d.HasVotes() {
		return false
	}
	a.DebatesWithVotes++

	outcome := d.Outcome()
	cat := a.Categories.Entry(d.CategoryName())
	switch outcome {
	case models.OutcomeChallenger:
		a.ChallengerWins++
		cat.ChallengerWins++
	case models.OutcomeOpponent:
		a.OpponentWins++
		cat.OpponentWins++
	default:
		a.Ties++
	}
	cat.Total++

	for _, v := range d.Votes.Details {
		if !v.Side.Valid() {
			continue
		}
		vc := a.Voters.Entry(v.VoterName())
		if v.Side == models.SideChallenger {
			vc.Challenger++
		} else {
			vc.Opponent++
		}
		vc.Total++
	}

	return true
}

// Decided returns the number of debates that were not ties.
func (a *Aggregator) Decided() int {
	return a.ChallengerWins + a.OpponentWins
}
