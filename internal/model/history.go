package model

import "time"

// HistoryEntry records one pokemon's loan from reservation to return.
type HistoryEntry struct {
	ID          int64      `json:"id" db:"id"`
	PokemonID   string     `json:"pokemon_id" db:"pokemon_id"`
	PokemonName string     `json:"pokemon_name" db:"pokemon_name"`
	TrainerID   string     `json:"trainer_id" db:"trainer_id"`
	BorrowedAt  time.Time  `json:"borrowed_at" db:"borrowed_at"`
	Returned    bool       `json:"returned" db:"returned"`
	ReturnedAt  *time.Time `json:"returned_at,omitempty" db:"returned_at"`
	Comment     *string    `json:"comment,omitempty" db:"comment"`
	DueAt       *time.Time `json:"due_at,omitempty" db:"due_at"`

	// Joined fields (not always populated).
	TrainerName *string `json:"trainer_name,omitempty" db:"trainer_name"`
	ClanName    *string `json:"clan_name,omitempty" db:"clan_name"`
}

// LoanGroup is the set of active entries one trainer borrowed together.
type LoanGroup struct {
	TrainerID   string        `json:"trainer_id"`
	TrainerName string        `json:"trainer_name"`
	BorrowedAt  time.Time     `json:"borrowed_at"`
	DueAt       *time.Time    `json:"due_at,omitempty"`
	Comment     *string       `json:"comment,omitempty"`
	EntryIDs    []int64       `json:"entry_ids"`
	Pokemon     []LoanedEntry `json:"pokemon"`
}

// LoanedEntry is one pokemon inside a LoanGroup.
type LoanedEntry struct {
	EntryID int64  `json:"entry_id"`
	Name    string `json:"name"`
	Clan    string `json:"clan"`
}
