// Package lending borrows and returns pokemon. Every operation runs in a
// single transaction and changes pokemon status only through the
// version-guarded transitions in the store package.
package lending

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/erazemk/pokelend/internal/model"
	"github.com/erazemk/pokelend/internal/store"
)

// Loan duration bounds, in hours.
const (
	MinDurationHours = 1
	MaxDurationHours = 10
)

// MaxCommentLength bounds the free-text comment of a reservation.
const MaxCommentLength = 500

// Engine implements the lending operations over a database.
type Engine struct {
	db      *sqlx.DB
	auth    *Authenticator
	metrics *Metrics
	log     *slog.Logger
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.log = l } }

// WithMetrics sets the collectors the engine reports to.
func WithMetrics(m *Metrics) Option { return func(e *Engine) { e.metrics = m } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// New returns an Engine over db that authenticates trainers with authn.
func New(db *sqlx.DB, authn *Authenticator, opts ...Option) *Engine {
	e := &Engine{
		db:   db,
		auth: authn,
		log:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = NewMetrics(nil)
	}
	return e
}

// ReserveRequest describes an ad-hoc reservation.
type ReserveRequest struct {
	PokemonIDs    []string
	Password      string
	DurationHours *int
	Comment       string

	// ExpectedVersions optionally pins pokemon to the version the caller saw.
	ExpectedVersions map[string]int64
}

// ReserveResult describes a successful reservation.
type ReserveResult struct {
	Message    string     `json:"message"`
	Trainer    string     `json:"trainer"`
	EntryIDs   []int64    `json:"entry_ids"`
	BorrowedAt time.Time  `json:"borrowed_at"`
	DueAt      *time.Time `json:"due_at,omitempty"`
}

// Reserve borrows every requested pokemon or none of them.
func (e *Engine) Reserve(ctx context.Context, req ReserveRequest) (res *ReserveResult, err error) {
	defer func() { e.metrics.observe(OpReserve, err) }()

	ids, err := pokemonIDs(req.PokemonIDs)
	if err != nil {
		return nil, err
	}
	pinned, err := expectedVersions(req.ExpectedVersions)
	if err != nil {
		return nil, err
	}
	if req.Password == "" {
		return nil, validation("password is required")
	}
	if d := req.DurationHours; d != nil && (*d < MinDurationHours || *d > MaxDurationHours) {
		return nil, validation("duration must be between %d and %d hours", MinDurationHours, MaxDurationHours)
	}
	comment := strings.TrimSpace(req.Comment)
	if len(comment) > MaxCommentLength {
		return nil, validation("comment must be at most %d characters", MaxCommentLength)
	}

	trainer, err := e.identify(ctx, req.Password)
	if err != nil {
		return nil, err
	}

	borrowedAt := e.now().UTC()
	var dueAt *time.Time
	if req.DurationHours != nil {
		due := borrowedAt.Add(time.Duration(*req.DurationHours) * time.Hour)
		dueAt = &due
	}

	var entryIDs []int64
	err = e.inTx(ctx, OpReserve, func(tx *sqlx.Tx) error {
		found, err := store.PokemonByIDs(ctx, tx, ids)
		if err != nil {
			return txError(err, "reading pokemon")
		}
		byID := make(map[string]model.Pokemon, len(found))
		for _, p := range found {
			byID[p.ID] = p
		}

		// Every check happens before the first write.
		var missing, unavailable, names []string
		for _, id := range ids {
			p, ok := byID[id]
			switch {
			case !ok:
				missing = append(missing, id)
			case p.Status != model.PokemonAvailable:
				unavailable = append(unavailable, id)
				names = append(names, p.Name)
			default:
				if want, isPinned := pinned[id]; isPinned && want != p.Version {
					unavailable = append(unavailable, id)
					names = append(names, p.Name)
				}
			}
		}
		if len(missing) > 0 {
			return notFound("pokemon", missing...)
		}
		if len(unavailable) > 0 {
			return conflict("pokemon not available: "+strings.Join(names, ", "), unavailable...)
		}

		var lost []string
		for _, id := range ids {
			p := byID[id]
			applied, err := store.TransitionPokemonAt(ctx, tx, id, p.Version, model.PokemonAvailable, model.PokemonBorrowed)
			if err != nil {
				return txError(err, "reserving pokemon")
			}
			if !applied {
				lost = append(lost, id)
				names = append(names, p.Name)
			}
		}
		if len(lost) > 0 {
			return conflict("pokemon was reserved concurrently: "+strings.Join(names, ", "), lost...)
		}

		for _, id := range ids {
			entryID, err := store.InsertHistory(ctx, tx, &model.HistoryEntry{
				PokemonID:   id,
				PokemonName: byID[id].Name,
				TrainerID:   trainer.ID,
				BorrowedAt:  borrowedAt,
				Comment:     optional(comment),
				DueAt:       dueAt,
			})
			if err != nil {
				return txError(err, "recording loan")
			}
			entryIDs = append(entryIDs, entryID)
		}
		return nil
	})
	if err != nil {
		if KindOf(err) == KindConflict {
			e.log.Info("reservation refused", "trainer", trainer.ID, "pokemon", conflictIDs(err))
		}
		return nil, err
	}

	e.metrics.moved(OpReserve, len(ids))
	e.log.Info("pokemon reserved", "trainer", trainer.ID, "pokemon", ids, "entries", entryIDs)

	return &ReserveResult{
		Message:    fmt.Sprintf("%d pokemon reserved by %s", len(ids), trainer.Name),
		Trainer:    trainer.Name,
		EntryIDs:   entryIDs,
		BorrowedAt: borrowedAt,
		DueAt:      dueAt,
	}, nil
}

// ReturnResult describes a successful return.
type ReturnResult struct {
	Message         string `json:"message"`
	Count           int64  `json:"count"`
	AlreadyReturned bool   `json:"already_returned,omitempty"`
}

var errNothingReturned = errors.New("nothing returned")

// ReturnOne returns the pokemon of one history entry. Returning an entry
// that is already returned succeeds without writing anything.
func (e *Engine) ReturnOne(ctx context.Context, entryID int64, password string) (res *ReturnResult, err error) {
	defer func() { e.metrics.observe(OpReturn, err) }()

	if entryID <= 0 {
		return nil, validation("invalid history entry id %d", entryID)
	}
	if password == "" {
		return nil, validation("password is required")
	}

	entry, err := e.ownedEntry(ctx, entryID, password)
	if err != nil {
		return nil, err
	}
	already := &ReturnResult{Message: "pokemon was already returned", AlreadyReturned: true}
	if entry.Returned {
		return already, nil
	}

	var n int64
	err = e.inTx(ctx, OpReturn, func(tx *sqlx.Tx) error {
		var rerr error
		if n, rerr = e.returnEntries(ctx, tx, []int64{entryID}, entry.TrainerID); rerr != nil {
			return rerr
		}
		if n == 0 {
			// Returned by someone else between the read and the transaction.
			return errNothingReturned
		}
		return nil
	})
	if errors.Is(err, errNothingReturned) {
		return already, nil
	}
	if err != nil {
		return nil, err
	}

	e.metrics.moved(OpReturn, int(n))
	e.log.Info("pokemon returned", "trainer", entry.TrainerID, "entries", []int64{entryID}, "count", n)
	return &ReturnResult{Message: entry.PokemonName + " returned", Count: n}, nil
}

// ReturnMany returns every still active entry among entryIDs that belongs
// to the trainer of the first entry. Entries already returned, unknown or
// owned by someone else are left out of the count rather than failing the
// call.
func (e *Engine) ReturnMany(ctx context.Context, entryIDs []int64, password string) (res *ReturnResult, err error) {
	defer func() { e.metrics.observe(OpReturn, err) }()

	if len(entryIDs) == 0 {
		return nil, validation("no history entries selected")
	}
	ids := make([]int64, 0, len(entryIDs))
	seen := make(map[int64]bool, len(entryIDs))
	for _, id := range entryIDs {
		if id <= 0 {
			return nil, validation("invalid history entry id %d", id)
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if password == "" {
		return nil, validation("password is required")
	}

	first, err := e.ownedEntry(ctx, ids[0], password)
	if err != nil {
		return nil, err
	}

	var n int64
	err = e.inTx(ctx, OpReturn, func(tx *sqlx.Tx) error {
		var rerr error
		n, rerr = e.returnEntries(ctx, tx, ids, first.TrainerID)
		return rerr
	})
	if err != nil {
		return nil, err
	}

	e.metrics.moved(OpReturn, int(n))
	e.log.Info("pokemon returned", "trainer", first.TrainerID, "entries", ids, "count", n)

	msg := fmt.Sprintf("%d pokemon returned", n)
	if n == 0 {
		msg = "nothing left to return"
	}
	return &ReturnResult{Message: msg, Count: n}, nil
}

// returnEntries frees the pokemon behind the active entries of trainerID
// among ids and marks those entries returned.
func (e *Engine) returnEntries(ctx context.Context, tx *sqlx.Tx, ids []int64, trainerID string) (int64, error) {
	pokemon, err := store.ActivePokemonForEntries(ctx, tx, ids, trainerID)
	if err != nil {
		return 0, txError(err, "resolving loans")
	}
	if len(pokemon) == 0 {
		return 0, nil
	}

	for _, id := range pokemon {
		applied, err := store.TransitionPokemon(ctx, tx, id, model.PokemonBorrowed, model.PokemonAvailable)
		if err != nil {
			return 0, txError(err, "returning pokemon")
		}
		if !applied {
			e.log.Warn("returned pokemon was not borrowed", "pokemon", id, "trainer", trainerID)
		}
	}

	n, err := store.MarkReturned(ctx, tx, ids, trainerID, e.now().UTC())
	if err != nil {
		return 0, txError(err, "closing loans")
	}
	if n != int64(len(ids)) {
		e.log.Warn("returned fewer entries than requested", "requested", len(ids), "count", n, "trainer", trainerID)
	}
	return n, nil
}

// Skipped is a favorite list member a group reservation left out.
type Skipped struct {
	PokemonID string `json:"pokemon_id"`
	Name      string `json:"name,omitempty"`
	Reason    string `json:"reason"`
}

// GroupReserveResult describes a favorite list borrow.
type GroupReserveResult struct {
	Message       string    `json:"message"`
	ReservedCount int       `json:"reserved_count"`
	EntryIDs      []int64   `json:"entry_ids"`
	Skipped       []Skipped `json:"skipped"`
}

// ReserveFromGroup borrows the members of a favorite list that are
// currently available and reports the rest as skipped. It fails only when
// no member can be borrowed.
func (e *Engine) ReserveFromGroup(ctx context.Context, listID, password, comment string) (res *GroupReserveResult, err error) {
	defer func() { e.metrics.observe(OpGroup, err) }()

	lid, perr := uuid.Parse(strings.TrimSpace(listID))
	if perr != nil {
		return nil, validation("invalid favorite list id %q", listID)
	}
	listID = lid.String()
	if password == "" {
		return nil, validation("password is required")
	}
	comment = strings.TrimSpace(comment)
	if len(comment) > MaxCommentLength {
		return nil, validation("comment must be at most %d characters", MaxCommentLength)
	}

	trainer, err := e.identify(ctx, password)
	if err != nil {
		return nil, err
	}

	borrowedAt := e.now().UTC()
	res = &GroupReserveResult{Skipped: []Skipped{}}

	err = e.inTx(ctx, OpGroup, func(tx *sqlx.Tx) error {
		members, exists, err := store.FavoritePokemonIDs(ctx, tx, listID)
		if err != nil {
			return txError(err, "reading favorite list")
		}
		if !exists {
			return notFound("favorite list", listID)
		}
		if len(members) == 0 {
			return validation("favorite list has no pokemon")
		}

		found, err := store.PokemonByIDs(ctx, tx, members)
		if err != nil {
			return txError(err, "reading pokemon")
		}
		byID := make(map[string]model.Pokemon, len(found))
		for _, p := range found {
			byID[p.ID] = p
		}

		for _, id := range members {
			p, ok := byID[id]
			if !ok {
				res.Skipped = append(res.Skipped, Skipped{PokemonID: id, Reason: "not found"})
				continue
			}
			if p.Status != model.PokemonAvailable {
				res.Skipped = append(res.Skipped, Skipped{PokemonID: id, Name: p.Name, Reason: p.Status})
				continue
			}

			applied, err := store.TransitionPokemonAt(ctx, tx, id, p.Version, model.PokemonAvailable, model.PokemonBorrowed)
			if err != nil {
				return txError(err, "reserving pokemon")
			}
			if !applied {
				res.Skipped = append(res.Skipped, Skipped{PokemonID: id, Name: p.Name, Reason: "reserved concurrently"})
				continue
			}

			entryID, err := store.InsertHistory(ctx, tx, &model.HistoryEntry{
				PokemonID:   id,
				PokemonName: p.Name,
				TrainerID:   trainer.ID,
				BorrowedAt:  borrowedAt,
				Comment:     optional(comment),
			})
			if err != nil {
				return txError(err, "recording loan")
			}
			res.EntryIDs = append(res.EntryIDs, entryID)
		}

		if len(res.EntryIDs) == 0 {
			return conflict("no pokemon of the favorite list is available", members...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.ReservedCount = len(res.EntryIDs)
	res.Message = fmt.Sprintf("%d pokemon reserved by %s, %d skipped", res.ReservedCount, trainer.Name, len(res.Skipped))

	e.metrics.moved(OpGroup, res.ReservedCount)
	e.log.Info("favorite list reserved", "trainer", trainer.ID, "list", listID,
		"entries", res.EntryIDs, "skipped", len(res.Skipped))
	return res, nil
}

// Retire takes an available pokemon out of circulation.
func (e *Engine) Retire(ctx context.Context, pokemonID string) (p *model.Pokemon, err error) {
	defer func() { e.metrics.observe(OpRetire, err) }()
	return e.transition(ctx, OpRetire, pokemonID, model.PokemonAvailable, model.PokemonInactive)
}

// Reinstate puts a retired pokemon back into circulation.
func (e *Engine) Reinstate(ctx context.Context, pokemonID string) (p *model.Pokemon, err error) {
	defer func() { e.metrics.observe(OpReinstate, err) }()
	return e.transition(ctx, OpReinstate, pokemonID, model.PokemonInactive, model.PokemonAvailable)
}

func (e *Engine) transition(ctx context.Context, op, id, from, to string) (*model.Pokemon, error) {
	pid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, validation("invalid pokemon id %q", id)
	}
	id = pid.String()

	var updated *model.Pokemon
	err = e.inTx(ctx, op, func(tx *sqlx.Tx) error {
		p, err := store.GetPokemon(ctx, tx, id)
		if err != nil {
			return txError(err, "reading pokemon")
		}
		if p == nil {
			return notFound("pokemon", id)
		}

		applied, err := store.TransitionPokemonAt(ctx, tx, id, p.Version, from, to)
		if err != nil {
			return txError(err, "updating pokemon")
		}
		if !applied {
			return conflict(fmt.Sprintf("%s is %s, expected %s", p.Name, p.Status, from), id)
		}

		updated, err = store.GetPokemon(ctx, tx, id)
		if err != nil {
			return txError(err, "reading pokemon")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("pokemon status changed", "pokemon", id, "from", from, "to", to)
	return updated, nil
}

func (e *Engine) identify(ctx context.Context, password string) (*model.Trainer, error) {
	trainer, err := e.auth.Identify(ctx, password)
	if err != nil {
		return nil, internal(err, "checking trainer password")
	}
	if trainer == nil {
		return nil, unauthorized()
	}
	return trainer, nil
}

// ownedEntry loads an entry and checks password against its trainer.
func (e *Engine) ownedEntry(ctx context.Context, id int64, password string) (*model.HistoryEntry, error) {
	entry, err := store.GetHistoryEntry(ctx, e.db, id)
	if err != nil {
		return nil, internal(err, "reading history entry")
	}
	if entry == nil {
		return nil, notFound("history entry", fmt.Sprint(id))
	}

	ok, err := e.auth.Verify(ctx, entry.TrainerID, password)
	if err != nil {
		return nil, internal(err, "checking trainer password")
	}
	if !ok {
		return nil, unauthorized()
	}
	return entry, nil
}

// pokemonIDs validates and de-duplicates requested ids, keeping order.
func expectedVersions(raw map[string]int64) (map[string]int64, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]int64, len(raw))
	for id, v := range raw {
		u, err := uuid.Parse(strings.TrimSpace(id))
		if err != nil {
			return nil, validation("invalid pokemon id in expected versions: %s", id)
		}
		out[u.String()] = v
	}
	return out, nil
}

func pokemonIDs(raw []string) ([]string, error) {
	if len(raw) == 0 {
		return nil, validation("no pokemon selected")
	}

	ids := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	var bad []string
	for _, id := range raw {
		u, err := uuid.Parse(strings.TrimSpace(id))
		if err != nil {
			bad = append(bad, strings.TrimSpace(id))
			continue
		}
		// Stored ids are canonical, so other spellings must be folded first.
		id = u.String()
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(bad) > 0 {
		err := validation("invalid pokemon id: %s", strings.Join(bad, ", "))
		err.IDs = bad
		return nil, err
	}
	return ids, nil
}

func conflictIDs(err error) []string {
	var le *Error
	if errors.As(err, &le) {
		return le.IDs
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
