// Package testutil provides builders for synthetic debate records used across package tests.
package testutil

import (
	"github.com/rewired-gh/votestudy/internal/models"
)

// Vote builds a vote record for name on side.
func Vote(name string, side models.Side) models.VoteRecord {
	n := name
	return models.VoteRecord{Voter: models.Voter{Name: &n}, Side: side}
}

// Votes builds n identical vote records.
func Votes(name string, side models.Side, n int) []models.VoteRecord {
	out := make([]models.VoteRecord, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Vote(name, side))
	}
	return out
}

// Debate builds a detail record whose total is ch+op.
func Debate(slug, category string, ch, op int, votes ...models.VoteRecord) *models.DebateDetail {
	return &models.DebateDetail{
		Slug:     slug,
		Category: category,
		Votes: models.Votes{
			Total:      ch + op,
			Challenger: ch,
			Opponent:   op,
			Details:    votes,
		},
	}
}
