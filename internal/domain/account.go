package domain

import "time"

type AccountID string

// Account holds the long-lived, persisted part of a conversation context.
type Account struct {
	ID           AccountID
	Name         string
	Settings     AccountSettings
	ProfileFacts []ProfileFact
	LastTurnID   uint64
	UpdatedAt    time.Time
}

type AccountSettings struct {
	MemoryEnabled bool
	// LimitOverride replaces the configured default token limit when set.
	LimitOverride *int64
}

type FactKind string

const (
	FactKindPreference FactKind = "preference"
	FactKindTrait      FactKind = "trait"
	FactKindMemory     FactKind = "memory"
)

func (k FactKind) Valid() bool {
	switch k {
	case FactKindPreference, FactKindTrait, FactKindMemory:
		return true
	default:
		return false
	}
}

type FactSource string

const (
	FactSourceQuiz        FactSource = "quiz"
	FactSourceObservation FactSource = "observation"
)

func (s FactSource) Valid() bool {
	return s == FactSourceQuiz || s == FactSourceObservation
}

// ProfileFact is a structured preference or trait record. It never carries
// free-text answers or dispute wording.
type ProfileFact struct {
	Seq    int
	Kind   FactKind
	Key    string
	Value  string
	Source FactSource
}

// NextFactSeq returns the sequence number the next appended fact should use.
func (a Account) NextFactSeq() int {
	next := 1
	for _, fact := range a.ProfileFacts {
		if fact.Seq >= next {
			next = fact.Seq + 1
		}
	}
	return next
}
