// Package report turns aggregated tallies into the final vote-study document.
//
// Percentages are whole numbers rounded half to even. Categories are ranked by sample
// size and voters by challenger share; both sorts are stable, so equal keys keep the
// order in which the category or voter was first seen.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/rewired-gh/votestudy/internal/stats"
)

// Timestamp layouts: ISO-8601 with a numeric offset, with microseconds only when non-zero.
const (
	TimestampLayout      = "2006-01-02T15:04:05.000000-07:00"
	TimestampLayoutWhole = "2006-01-02T15:04:05-07:00"
)

// NoRange is reported as the high-bias range when no voter qualifies.
const NoRange = "N/A"

// Thresholds control which categories and voters qualify for the derived groups.
type Thresholds struct {
	// MinCategoryTotal is the sample size a category needs to be an extreme.
	MinCategoryTotal int
	// ActiveVoterMin is the vote count a voter needs to be active.
	ActiveVoterMin int
	// HighBiasPct is the challenger share at or above which an active voter is high-bias.
	HighBiasPct int
	// BalancedLow and BalancedHigh bound, inclusively, a balanced active voter's share.
	BalancedLow  int
	BalancedHigh int
}

// DefaultThresholds returns the thresholds used by the platform's published studies.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinCategoryTotal: 3,
		ActiveVoterMin:   5,
		HighBiasPct:      70,
		BalancedLow:      45,
		BalancedHigh:     55,
	}
}

// Category is one row of the category breakdown.
type Category struct {
	Name           string `json:"name"`
	ChallengerWins int    `json:"challengerWins"`
	OpponentWins   int    `json:"opponentWins"`
	Total          int    `json:"total"`
	ChallengerPct  int    `json:"challengerPct"`
}

// Voter is one row of the voter breakdown.
type Voter struct {
	Name          string `json:"name"`
	Challenger    int    `json:"challenger"`
	Opponent      int    `json:"opponent"`
	Total         int    `json:"total"`
	ChallengerPct int    `json:"challengerPct"`
}

// VoterSummary condenses the voter breakdown.
type VoterSummary struct {
	TotalActiveVoters int    `json:"totalActiveVoters"`
	HighBiasCount     int    `json:"highBiasCount"`
	BalancedCount     int    `json:"balancedCount"`
	HighBiasRange     string `json:"highBiasRange"`
}

// Report is the document written to standard output.
type Report struct {
	Generated             string       `json:"generated"`
	TotalDebates          int          `json:"totalDebates"`
	DebatesWithVotes      int          `json:"debatesWithVotes"`
	OverallChallengerWins int          `json:"overallChallengerWins"`
	OverallOpponentWins   int          `json:"overallOpponentWins"`
	OverallChallengerPct  int          `json:"overallChallengerPct"`
	Categories            []Category   `json:"categories"`
	MostUnbalanced        *Category    `json:"mostUnbalanced"`
	MostBalanced          *Category    `json:"mostBalanced"`
	Voters                []Voter      `json:"voters"`
	VoterSummary          VoterSummary `json:"voterSummary"`
}

// FormatTimestamp renders t in UTC, truncated to microseconds. The fraction is left out
// when it is zero.
func FormatTimestamp(t time.Time) string {
	t = t.UTC()
	if t.Nanosecond()/1000 == 0 {
		return t.Format(TimestampLayoutWhole)
	}
	return t.Format(TimestampLayout)
}

// Percent returns round(part/whole*100), or 0 when whole is zero.
func Percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.RoundToEven(float64(part) / float64(whole) * 100))
}

// Build assembles the report from an aggregator. totalDebates is the number of
// summaries listed, including ones that were later skipped.
func Build(agg *stats.Aggregator, totalDebates int, th Thresholds, now time.Time) *Report {
	r := &Report{
		Generated:             FormatTimestamp(now),
		TotalDebates:          totalDebates,
		DebatesWithVotes:      agg.DebatesWithVotes,
		OverallChallengerWins: agg.ChallengerWins,
		OverallOpponentWins:   agg.OpponentWins,
		OverallChallengerPct:  Percent(agg.ChallengerWins, agg.Decided()),
		Categories:            buildCategories(agg.Categories),
		Voters:                buildVoters(agg.Voters),
	}

	r.MostUnbalanced, r.MostBalanced = categoryExtremes(r.Categories, th.MinCategoryTotal)
	r.VoterSummary = summarizeVoters(r.Voters, th)
	return r
}

func buildCategories(t *stats.Tally[stats.CategoryCounts]) []Category {
	out := make([]Category, 0, t.Len())
	for _, name := range t.Keys() {
		c, _ := t.Get(name)
		if c.Total == 0 {
			continue
		}
		out = append(out, Category{
			Name:           name,
			ChallengerWins: c.ChallengerWins,
			OpponentWins:   c.OpponentWins,
			Total:          c.Total,
			ChallengerPct:  Percent(c.ChallengerWins, c.Total),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Total > out[j].Total
	})
	return out
}

func buildVoters(t *stats.Tally[stats.VoterCounts]) []Voter {
	out := make([]Voter, 0, t.Len())
	for _, name := range t.Keys() {
		v, _ := t.Get(name)
		if v.Total == 0 {
			continue
		}
		out = append(out, Voter{
			Name:          name,
			Challenger:    v.Challenger,
			Opponent:      v.Opponent,
			Total:         v.Total,
			ChallengerPct: Percent(v.Challenger, v.Total),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ChallengerPct > out[j].ChallengerPct
	})
	return out
}

// categoryExtremes picks the qualifying categories farthest from and closest to an even
// split. The first candidate wins ties in both directions.
func categoryExtremes(cats []Category, minTotal int) (unbalanced, balanced *Category) {
	for i := range cats {
		c := cats[i]
		if c.Total < minTotal {
			continue
		}
		d := skew(c.ChallengerPct)
		if unbalanced == nil || d > skew(unbalanced.ChallengerPct) {
			unbalanced = &c
		}
		if balanced == nil || d < skew(balanced.ChallengerPct) {
			b := c
			balanced = &b
		}
	}
	return unbalanced, balanced
}

func skew(pct int) int {
	if pct < 50 {
		return 50 - pct
	}
	return pct - 50
}

func summarizeVoters(voters []Voter, th Thresholds) VoterSummary {
	s := VoterSummary{HighBiasRange: NoRange}
	lo, hi := 0, 0
	for _, v := range voters {
		if v.Total < th.ActiveVoterMin {
			continue
		}
		s.TotalActiveVoters++
		if v.ChallengerPct >= th.HighBiasPct {
			if s.HighBiasCount == 0 || v.ChallengerPct < lo {
				lo = v.ChallengerPct
			}
			if s.HighBiasCount == 0 || v.ChallengerPct > hi {
				hi = v.ChallengerPct
			}
			s.HighBiasCount++
		}
		if v.ChallengerPct >= th.BalancedLow && v.ChallengerPct <= th.BalancedHigh {
			s.BalancedCount++
		}
	}
	if s.HighBiasCount > 0 {
		s.HighBiasRange = fmt.Sprintf("%d-%d%%", lo, hi)
	}
	return s
}

// Write serializes the report as indented JSON followed by a newline.
func Write(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}
