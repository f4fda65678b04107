// Package model contains domain models passed between layers.
package model

// Actor is a community member as the engine sees it. Actors are created
// lazily on the first observed event and never deleted.
type Actor struct {
	ID          int64
	Handle      string // lowercased, leading '@' stripped; may be empty
	DisplayName string
	XP          int64 // always >= 0
	Level       int   // 1..5, driven by XP
	Warns       int
	Rank        int // stored moderation rank, 0 = regular member
	Reputation  int
	LastWipe    string // date key of the last wipe use, "" if never
}

// DateKeyLayout formats timestamps into the day-granular keys used by the
// reputation ledger and the wipe allowance.
const DateKeyLayout = "2006-01-02"
