package model

import "time"

// Trainer is a registered borrower. Credential holds the stored form of the
// trainer's secret as produced by the configured credential scheme.
type Trainer struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Email      string    `json:"email,omitempty" db:"email"`
	Credential string    `json:"-" db:"credential"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
