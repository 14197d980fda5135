package scheduler

import "time"

// Gate fires once per Interval, measured from the last time it fired
type Gate struct {
	Interval time.Duration
	Last     time.Time
}

// Due reports whether the gate has expired at now
func (g *Gate) Due(now time.Time) bool {
	return now.Sub(g.Last) >= g.Interval
}

// Next is the instant the gate expires
func (g *Gate) Next() time.Time {
	return g.Last.Add(g.Interval)
}

// Fire records that the gate ran at now
func (g *Gate) Fire(now time.Time) {
	g.Last = now
}
