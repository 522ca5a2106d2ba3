package stats

// CategoryCounts holds debate outcomes within one category. Ties increment Total only,
// so Total can exceed ChallengerWins+OpponentWins.
type CategoryCounts struct {
	ChallengerWins int
	OpponentWins   int
	Total          int
}

// VoterCounts holds the sides one voter picked across all processed debates.
type VoterCounts struct {
	Challenger int
	Opponent   int
	Total      int
}

// Tally is a map of named counters that remembers first-insertion order.
// Entry inserts a zero value on first access.
type Tally[C any] struct {
	keys   []string
	counts map[string]*C
}

// NewTally returns an empty tally.
func NewTally[C any]() *Tally[C] {
	return &Tally[C]{counts: make(map[string]*C)}
}

// Entry returns the counter for name, creating it if needed.
func (t *Tally[C]) Entry(name string) *C {
	if c, ok := t.counts[name]; ok {
		return c
	}
	c := new(C)
	t.counts[name] = c
	t.keys = append(t.keys, name)
	return c
}

// Get returns a copy of the counter for name without creating it.
func (t *Tally[C]) Get(name string) (C, bool) {
	c, ok := t.counts[name]
	if !ok {
		var zero C
		return zero, false
	}
	return *c, true
}

// Keys returns names in first-insertion order.
func (t *Tally[C]) Keys() []string {
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// Len returns the number of names.
func (t *Tally[C]) Len() int {
	return len(t.keys)
}
