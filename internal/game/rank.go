// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Garrison Contributors

package game

// Rank is one row of the rank progression table.
type Rank struct {
	Level              int
	Name               string
	RequiredExperience int64
}

// RankSource is the narrow lookup interface the auth core consumes: rank
// display names and the experience thresholds needed for the progress bar.
type RankSource interface {
	// RankName returns the display name for a rank level, or an empty string
	// if the level is unknown.
	RankName(level int) string

	// RequiredExperience returns the experience threshold for a rank level.
	// The second return is false if the level is above the table.
	RequiredExperience(level int) (int64, bool)
}

// RankTable is the static in-memory rank progression.
type RankTable struct {
	ranks []Rank
}

// DefaultRanks returns the standard rank progression table.
func DefaultRanks() *RankTable {
	return &RankTable{ranks: []Rank{
		{Level: 1, Name: "Private", RequiredExperience: 0},
		{Level: 2, Name: "Corporal", RequiredExperience: 100},
		{Level: 3, Name: "Sergeant", RequiredExperience: 300},
		{Level: 4, Name: "Staff Sergeant", RequiredExperience: 700},
		{Level: 5, Name: "Sergeant First Class", RequiredExperience: 1500},
		{Level: 6, Name: "Master Sergeant", RequiredExperience: 3000},
		{Level: 7, Name: "First Sergeant", RequiredExperience: 6000},
		{Level: 8, Name: "Command Sergeant Major", RequiredExperience: 10000},
		{Level: 9, Name: "Warrant Officer", RequiredExperience: 20000},
	}}
}

// RankName returns the display name for a rank level.
func (t *RankTable) RankName(level int) string {
	for _, r := range t.ranks {
		if r.Level == level {
			return r.Name
		}
	}
	return ""
}

// RequiredExperience returns the experience threshold for a rank level.
func (t *RankTable) RequiredExperience(level int) (int64, bool) {
	for _, r := range t.ranks {
		if r.Level == level {
			return r.RequiredExperience, true
		}
	}
	return 0, false
}

// ProgressPercent computes how far an account has progressed from its current
// rank toward the next one, clamped to [0, 100]. Accounts at the top rank
// always report 100.
func ProgressPercent(src RankSource, level int, experience int64) int {
	current, ok := src.RequiredExperience(level)
	if !ok {
		return 0
	}
	next, ok := src.RequiredExperience(level + 1)
	if !ok {
		return 100
	}

	span := next - current
	if span < 1 {
		span = 1
	}
	progress := (experience - current) * 100 / span
	if progress < 0 {
		return 0
	}
	if progress > 100 {
		return 100
	}
	return int(progress)
}

var _ RankSource = (*RankTable)(nil)
