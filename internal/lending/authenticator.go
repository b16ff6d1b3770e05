package lending

import (
	"context"
	"errors"
	"strings"

	"github.com/erazemk/pokelend/internal/auth"
	"github.com/erazemk/pokelend/internal/model"
	"github.com/erazemk/pokelend/internal/store"
)

// Authenticator resolves trainer secrets against stored credentials.
type Authenticator struct {
	q     store.Querier
	creds auth.Credentials
}

// NewAuthenticator returns an Authenticator over q using creds.
func NewAuthenticator(q store.Querier, creds auth.Credentials) *Authenticator {
	return &Authenticator{q: q, creds: creds}
}

// Identify returns the trainer whose credential matches secret, or nil.
// Plain credentials resolve through the unique credential index. Hashed
// ones can't be looked up, so Identify runs one Match per trainer; with
// bcrypt that is one hash comparison per registered trainer on every
// lending call, which bounds how many trainers the scheme suits.
func (a *Authenticator) Identify(ctx context.Context, secret string) (*model.Trainer, error) {
	if secret == "" {
		return nil, nil
	}
	if _, ok := a.creds.(auth.PlainCredentials); ok {
		return store.FindTrainerByCredential(ctx, a.q, secret)
	}

	trainers, err := store.ListTrainers(ctx, a.q)
	if err != nil {
		return nil, err
	}
	for i := range trainers {
		if a.creds.Match(trainers[i].Credential, secret) {
			return &trainers[i], nil
		}
	}
	return nil, nil
}

// Verify reports whether secret belongs to the given trainer.
func (a *Authenticator) Verify(ctx context.Context, trainerID, secret string) (bool, error) {
	if secret == "" {
		return false, nil
	}
	t, err := store.GetTrainer(ctx, a.q, trainerID)
	if err != nil || t == nil {
		return false, err
	}
	return a.creds.Match(t.Credential, secret), nil
}

// Register creates a trainer. A secret that already identifies another
// trainer is refused, since lending resolves trainers by secret alone. The
// check runs ahead of the insert; for plain credentials the unique index on
// trainers.credential settles concurrent registrations.
func (a *Authenticator) Register(ctx context.Context, name, email, secret string) (*model.Trainer, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.TrimSpace(email) == "" || secret == "" {
		return nil, validation("name, email and password are required")
	}

	existing, err := a.Identify(ctx, secret)
	if err != nil {
		return nil, internal(err, "checking trainer password")
	}
	if existing != nil {
		return nil, conflict("password is already used by another trainer")
	}

	sealed, err := a.creds.Seal(secret)
	if err != nil {
		return nil, internal(err, "storing trainer password")
	}

	t, err := store.CreateTrainer(ctx, a.q, name, email, sealed)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, conflict("a trainer with this email or password already exists")
	}
	if err != nil {
		return nil, internal(err, "creating trainer")
	}
	return t, nil
}
