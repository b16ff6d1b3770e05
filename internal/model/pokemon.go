package model

import "time"

// Pokemon is a single lendable unit of the collection.
type Pokemon struct {
	ID         string    `json:"id" db:"id"`
	TypeID     *string   `json:"type_id,omitempty" db:"type_id"`
	TypeName   *string   `json:"type,omitempty" db:"type_name"`
	Name       string    `json:"name" db:"name"`
	HeldItem   *string   `json:"held_item,omitempty" db:"held_item"`
	Status     string    `json:"status" db:"status"`
	Version    int64     `json:"version" db:"version"`
	SpriteMime *string   `json:"sprite_mime,omitempty" db:"sprite_mime"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`

	// Joined field (not always populated).
	ClanName *string `json:"clan,omitempty" db:"clan_name"`
}

// Pokemon statuses.
const (
	PokemonAvailable = "available"
	PokemonBorrowed  = "borrowed"
	PokemonInactive  = "inactive"
)

// ValidPokemonStatus reports whether s is one of the known statuses.
func ValidPokemonStatus(s string) bool {
	switch s {
	case PokemonAvailable, PokemonBorrowed, PokemonInactive:
		return true
	}
	return false
}

// PokemonType is a pokemon's elemental type.
type PokemonType struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}
