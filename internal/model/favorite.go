package model

import "time"

// FavoriteList is a shared, named set of pokemon that can be borrowed at once.
type FavoriteList struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	Pokemon []Pokemon `json:"pokemon,omitempty" db:"-"`
}
