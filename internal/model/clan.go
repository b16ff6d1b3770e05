package model

import "time"

// Clan is a named group of pokemon.
type Clan struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Elements  string    `json:"elements" db:"elements"`
	Color     string    `json:"color" db:"color"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
