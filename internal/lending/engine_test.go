package lending

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/pokelend/internal/auth"
	"github.com/erazemk/pokelend/internal/db"
	"github.com/erazemk/pokelend/internal/model"
	"github.com/erazemk/pokelend/internal/store"
)

var testNow = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

type fixture struct {
	db      *sqlx.DB
	engine  *Engine
	metrics *Metrics
	clan    *model.Clan
	ash     *model.Trainer
	misty   *model.Trainer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	database := db.NewTestDB(t)
	authn := NewAuthenticator(database, auth.PlainCredentials{})
	metrics := NewMetrics(prometheus.NewRegistry())

	clan, err := store.GetClanByName(ctx, database, "raibolt")
	require.NoError(t, err)
	require.NotNil(t, clan)

	ash, err := authn.Register(ctx, "Ash", "ash@pallet.town", "pikachu")
	require.NoError(t, err)
	misty, err := authn.Register(ctx, "Misty", "misty@cerulean.gym", "starmie")
	require.NoError(t, err)

	return &fixture{
		db:      database,
		engine:  New(database, authn, WithMetrics(metrics), WithClock(func() time.Time { return testNow })),
		metrics: metrics,
		clan:    clan,
		ash:     ash,
		misty:   misty,
	}
}

func (f *fixture) pokemon(t *testing.T, name string) *model.Pokemon {
	t.Helper()
	p, err := store.CreatePokemon(context.Background(), f.db, f.clan.ID, name, "", "Electric")
	require.NoError(t, err)
	return p
}

func (f *fixture) reload(t *testing.T, id string) *model.Pokemon {
	t.Helper()
	p, err := store.GetPokemon(context.Background(), f.db, id)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p
}

func (f *fixture) entry(t *testing.T, id int64) *model.HistoryEntry {
	t.Helper()
	e, err := store.GetHistoryEntry(context.Background(), f.db, id)
	require.NoError(t, err)
	require.NotNil(t, e)
	return e
}

func (f *fixture) reserve(t *testing.T, password string, pokemon ...*model.Pokemon) *ReserveResult {
	t.Helper()
	var ids []string
	for _, p := range pokemon {
		ids = append(ids, p.ID)
	}
	res, err := f.engine.Reserve(context.Background(), ReserveRequest{PokemonIDs: ids, Password: password})
	require.NoError(t, err)
	return res
}

func TestReserveAvailablePokemon(t *testing.T) {
	f := newFixture(t)
	x := f.pokemon(t, "Pikachu")
	require.Equal(t, int64(1), x.Version)

	res := f.reserve(t, "pikachu", x)

	assert.Equal(t, "Ash", res.Trainer)
	require.Len(t, res.EntryIDs, 1)
	assert.True(t, res.BorrowedAt.Equal(testNow))
	assert.Nil(t, res.DueAt)

	got := f.reload(t, x.ID)
	assert.Equal(t, model.PokemonBorrowed, got.Status)
	assert.Equal(t, int64(2), got.Version)

	e := f.entry(t, res.EntryIDs[0])
	assert.False(t, e.Returned)
	assert.Equal(t, "Pikachu", e.PokemonName)
	assert.Equal(t, f.ash.ID, e.TrainerID)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.operations.WithLabelValues(OpReserve, "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.pokemon.WithLabelValues(OpReserve)))
}

func TestReserveBorrowedPokemonConflicts(t *testing.T) {
	f := newFixture(t)
	x := f.pokemon(t, "Pikachu")
	f.reserve(t, "pikachu", x)

	_, err := f.engine.Reserve(context.Background(), ReserveRequest{PokemonIDs: []string{x.ID}, Password: "starmie"})
	require.Error(t, err)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Contains(t, Message(err), "Pikachu")

	var le *Error
	require.ErrorAs(t, err, &le)
	assert.Equal(t, []string{x.ID}, le.IDs)

	got := f.reload(t, x.ID)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.operations.WithLabelValues(OpReserve, "conflict")))
}

func TestReserveIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	a := f.pokemon(t, "Pichu")
	b := f.pokemon(t, "Raichu")
	c := f.pokemon(t, "Jolteon")
	f.reserve(t, "starmie", b)

	_, err := f.engine.Reserve(context.Background(), ReserveRequest{
		PokemonIDs: []string{a.ID, b.ID, c.ID},
		Password:   "pikachu",
	})
	assert.Equal(t, KindConflict, KindOf(err))

	for _, p := range []*model.Pokemon{a, c} {
		got := f.reload(t, p.ID)
		assert.Equal(t, model.PokemonAvailable, got.Status, p.Name)
		assert.Equal(t, int64(1), got.Version, p.Name)
	}

	active, err := store.ListActiveHistory(context.Background(), f.db)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestReserveConcurrentOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	x := f.pokemon(t, "Zapdos")

	const callers = 6
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			password := "pikachu"
			if i%2 == 1 {
				password = "starmie"
			}
			_, errs[i] = f.engine.Reserve(context.Background(), ReserveRequest{PokemonIDs: []string{x.ID}, Password: password})
		}(i)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch KindOf(err) {
		case "":
			wins++
		case KindConflict:
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, callers-1, conflicts)

	got := f.reload(t, x.ID)
	assert.Equal(t, model.PokemonBorrowed, got.Status)
	assert.Equal(t, int64(2), got.Version)

	active, err := store.ListActiveHistory(context.Background(), f.db)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestReserveValidation(t *testing.T) {
	// A nil database proves validation failures never reach storage.
	engine := New(nil, NewAuthenticator(nil, auth.PlainCredentials{}))
	ctx := context.Background()
	zero, eleven := 0, 11

	tests := []struct {
		name string
		req  ReserveRequest
	}{
		{"empty list", ReserveRequest{Password: "pikachu"}},
		{"missing password", ReserveRequest{PokemonIDs: []string{uuid.NewString()}}},
		{"malformed id", ReserveRequest{PokemonIDs: []string{"abc"}, Password: "pikachu"}},
		{"duration too short", ReserveRequest{PokemonIDs: []string{uuid.NewString()}, Password: "pikachu", DurationHours: &zero}},
		{"duration too long", ReserveRequest{PokemonIDs: []string{uuid.NewString()}, Password: "pikachu", DurationHours: &eleven}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Reserve(ctx, tt.req)
			assert.Equal(t, KindValidation, KindOf(err))
		})
	}
}

func TestReserveInvalidPassword(t *testing.T) {
	f := newFixture(t)
	y := f.pokemon(t, "Electabuzz")

	_, err := f.engine.Reserve(context.Background(), ReserveRequest{PokemonIDs: []string{y.ID}, Password: "wrong"})
	assert.Equal(t, KindAuth, KindOf(err))

	got := f.reload(t, y.ID)
	assert.Equal(t, model.PokemonAvailable, got.Status)
	assert.Equal(t, y.Version, got.Version)
}

func TestReserveUnknownPokemon(t *testing.T) {
	f := newFixture(t)
	a := f.pokemon(t, "Magnemite")
	missing := uuid.NewString()

	_, err := f.engine.Reserve(context.Background(), ReserveRequest{PokemonIDs: []string{a.ID, missing}, Password: "pikachu"})
	require.Equal(t, KindNotFound, KindOf(err))
	assert.Contains(t, Message(err), missing)

	assert.Equal(t, model.PokemonAvailable, f.reload(t, a.ID).Status)
}

func TestReserveStaleExpectedVersion(t *testing.T) {
	f := newFixture(t)
	a := f.pokemon(t, "Voltorb")

	_, err := f.engine.Reserve(context.Background(), ReserveRequest{
		PokemonIDs:       []string{a.ID},
		Password:         "pikachu",
		ExpectedVersions: map[string]int64{a.ID: a.Version + 3},
	})
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, a.Version, f.reload(t, a.ID).Version)

	res, err := f.engine.Reserve(context.Background(), ReserveRequest{
		PokemonIDs:       []string{a.ID},
		Password:         "pikachu",
		ExpectedVersions: map[string]int64{a.ID: a.Version},
	})
	require.NoError(t, err)
	assert.Len(t, res.EntryIDs, 1)
}

func TestReserveCollapsesDuplicatesAndSetsDueTime(t *testing.T) {
	f := newFixture(t)
	a := f.pokemon(t, "Electrode")
	hours := 3

	res, err := f.engine.Reserve(context.Background(), ReserveRequest{
		PokemonIDs:    []string{a.ID, a.ID},
		Password:      "pikachu",
		DurationHours: &hours,
		Comment:       "  gym battle ",
	})
	require.NoError(t, err)
	require.Len(t, res.EntryIDs, 1)
	require.NotNil(t, res.DueAt)
	assert.True(t, res.DueAt.Equal(testNow.Add(3*time.Hour)))

	e := f.entry(t, res.EntryIDs[0])
	require.NotNil(t, e.Comment)
	assert.Equal(t, "gym battle", *e.Comment)
	require.NotNil(t, e.DueAt)
	assert.True(t, e.DueAt.Equal(testNow.Add(3*time.Hour)))
	assert.Equal(t, int64(2), f.reload(t, a.ID).Version)
}

func TestReturnOne(t *testing.T) {
	f := newFixture(t)
	x := f.pokemon(t, "Pikachu")
	res := f.reserve(t, "pikachu", x)
	h := res.EntryIDs[0]

	out, err := f.engine.ReturnOne(context.Background(), h, "pikachu")
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.Count)
	assert.False(t, out.AlreadyReturned)

	got := f.reload(t, x.ID)
	assert.Equal(t, model.PokemonAvailable, got.Status)
	assert.Equal(t, int64(3), got.Version)

	e := f.entry(t, h)
	assert.True(t, e.Returned)
	require.NotNil(t, e.ReturnedAt)
	assert.True(t, e.ReturnedAt.Equal(testNow))

	// A second return is a successful no-op.
	again, err := f.engine.ReturnOne(context.Background(), h, "pikachu")
	require.NoError(t, err)
	assert.True(t, again.AlreadyReturned)
	assert.Equal(t, int64(3), f.reload(t, x.ID).Version)
}

func TestReturnOneErrors(t *testing.T) {
	f := newFixture(t)
	x := f.pokemon(t, "Pikachu")
	h := f.reserve(t, "pikachu", x).EntryIDs[0]
	ctx := context.Background()

	_, err := f.engine.ReturnOne(ctx, h, "starmie")
	assert.Equal(t, KindAuth, KindOf(err))

	_, err = f.engine.ReturnOne(ctx, h+1000, "pikachu")
	assert.Equal(t, KindNotFound, KindOf(err))

	_, err = f.engine.ReturnOne(ctx, 0, "pikachu")
	assert.Equal(t, KindValidation, KindOf(err))

	assert.Equal(t, model.PokemonBorrowed, f.reload(t, x.ID).Status)
}

func TestReturnManyIsInclusive(t *testing.T) {
	f := newFixture(t)
	a := f.pokemon(t, "Pichu")
	b := f.pokemon(t, "Raichu")
	res := f.reserve(t, "pikachu", a, b)
	h1, h2 := res.EntryIDs[0], res.EntryIDs[1]

	_, err := f.engine.ReturnOne(context.Background(), h2, "pikachu")
	require.NoError(t, err)

	out, err := f.engine.ReturnMany(context.Background(), []int64{h1, h2}, "pikachu")
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.Count)

	assert.True(t, f.entry(t, h1).Returned)
	assert.Equal(t, model.PokemonAvailable, f.reload(t, a.ID).Status)
	assert.Equal(t, int64(3), f.reload(t, b.ID).Version)

	// Everything is back already: still a success.
	out, err = f.engine.ReturnMany(context.Background(), []int64{h1, h2}, "pikachu")
	require.NoError(t, err)
	assert.Equal(t, int64(0), out.Count)
}

func TestReturnManySkipsForeignEntries(t *testing.T) {
	f := newFixture(t)
	a := f.pokemon(t, "Pichu")
	b := f.pokemon(t, "Raichu")
	ashEntry := f.reserve(t, "pikachu", a).EntryIDs[0]
	mistyEntry := f.reserve(t, "starmie", b).EntryIDs[0]
	ctx := context.Background()

	out, err := f.engine.ReturnMany(ctx, []int64{ashEntry, mistyEntry}, "pikachu")
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.Count)
	assert.False(t, f.entry(t, mistyEntry).Returned)
	assert.Equal(t, model.PokemonBorrowed, f.reload(t, b.ID).Status)

	// The first entry decides whose password is required.
	_, err = f.engine.ReturnMany(ctx, []int64{mistyEntry, ashEntry}, "pikachu")
	assert.Equal(t, KindAuth, KindOf(err))

	_, err = f.engine.ReturnMany(ctx, []int64{mistyEntry + 1000}, "starmie")
	assert.Equal(t, KindNotFound, KindOf(err))

	_, err = f.engine.ReturnMany(ctx, nil, "starmie")
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = f.engine.ReturnMany(ctx, []int64{mistyEntry, -1}, "starmie")
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestRoundTripBumpsVersionTwice(t *testing.T) {
	f := newFixture(t)
	x := f.pokemon(t, "Ampharos")
	before := x.Version

	h := f.reserve(t, "pikachu", x).EntryIDs[0]
	_, err := f.engine.ReturnOne(context.Background(), h, "pikachu")
	require.NoError(t, err)

	got := f.reload(t, x.ID)
	assert.Equal(t, model.PokemonAvailable, got.Status)
	assert.Equal(t, before+2, got.Version)
}

func TestCancelledReturnLeavesNoPartialState(t *testing.T) {
	f := newFixture(t)
	x := f.pokemon(t, "Luxray")
	h := f.reserve(t, "pikachu", x).EntryIDs[0]

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The clock is read after the pokemon is freed and before the entry is
	// closed, so cancelling there interrupts the transaction midway.
	f.engine.now = func() time.Time {
		cancel()
		return testNow
	}

	_, err := f.engine.ReturnOne(ctx, h, "pikachu")
	require.Error(t, err)
	assert.Equal(t, KindInternal, KindOf(err))

	got := f.reload(t, x.ID)
	assert.Equal(t, model.PokemonBorrowed, got.Status)
	assert.Equal(t, int64(2), got.Version)
	assert.False(t, f.entry(t, h).Returned)
}

func TestInTxRollsBackOnPanic(t *testing.T) {
	f := newFixture(t)
	x := f.pokemon(t, "Mareep")
	ctx := context.Background()

	assert.Panics(t, func() {
		f.engine.inTx(ctx, "test", func(tx *sqlx.Tx) error {
			applied, err := store.TransitionPokemon(ctx, tx, x.ID, model.PokemonAvailable, model.PokemonBorrowed)
			require.NoError(t, err)
			require.True(t, applied)
			panic("boom")
		})
	})

	got := f.reload(t, x.ID)
	assert.Equal(t, model.PokemonAvailable, got.Status)
	assert.Equal(t, int64(1), got.Version)
}

func TestReserveFromGroupPartial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.pokemon(t, "Pikachu")
	b := f.pokemon(t, "Raichu")
	c := f.pokemon(t, "Pichu")
	f.reserve(t, "starmie", b)
	_, err := f.engine.Retire(ctx, c.ID)
	require.NoError(t, err)

	list, err := store.CreateFavoriteList(ctx, f.db, "Electric trio", []string{a.ID, b.ID, c.ID})
	require.NoError(t, err)

	res, err := f.engine.ReserveFromGroup(ctx, list.ID, "pikachu", "tournament")
	require.NoError(t, err)
	assert.Equal(t, 1, res.ReservedCount)
	require.Len(t, res.EntryIDs, 1)
	require.Len(t, res.Skipped, 2)
	assert.Equal(t, Skipped{PokemonID: b.ID, Name: "Raichu", Reason: model.PokemonBorrowed}, res.Skipped[0])
	assert.Equal(t, Skipped{PokemonID: c.ID, Name: "Pichu", Reason: model.PokemonInactive}, res.Skipped[1])

	assert.Equal(t, model.PokemonBorrowed, f.reload(t, a.ID).Status)
	e := f.entry(t, res.EntryIDs[0])
	assert.Equal(t, f.ash.ID, e.TrainerID)
	require.NotNil(t, e.Comment)
	assert.Equal(t, "tournament", *e.Comment)
}

func TestReserveFromGroupNothingAvailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.pokemon(t, "Pikachu")
	b := f.pokemon(t, "Raichu")
	f.reserve(t, "starmie", a, b)

	list, err := store.CreateFavoriteList(ctx, f.db, "Taken", []string{a.ID, b.ID})
	require.NoError(t, err)

	_, err = f.engine.ReserveFromGroup(ctx, list.ID, "pikachu", "")
	require.Equal(t, KindConflict, KindOf(err))

	var le *Error
	require.ErrorAs(t, err, &le)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, le.IDs)
}

func TestReserveFromGroupErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty, err := store.CreateFavoriteList(ctx, f.db, "Empty", nil)
	require.NoError(t, err)

	_, err = f.engine.ReserveFromGroup(ctx, empty.ID, "pikachu", "")
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = f.engine.ReserveFromGroup(ctx, uuid.NewString(), "pikachu", "")
	assert.Equal(t, KindNotFound, KindOf(err))

	_, err = f.engine.ReserveFromGroup(ctx, "not-a-uuid", "pikachu", "")
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = f.engine.ReserveFromGroup(ctx, empty.ID, "wrong", "")
	assert.Equal(t, KindAuth, KindOf(err))
}

func TestRetireAndReinstate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	x := f.pokemon(t, "Jolteon")

	retired, err := f.engine.Retire(ctx, x.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PokemonInactive, retired.Status)
	assert.Equal(t, int64(2), retired.Version)

	// An inactive pokemon can't be borrowed.
	_, err = f.engine.Reserve(ctx, ReserveRequest{PokemonIDs: []string{x.ID}, Password: "pikachu"})
	assert.Equal(t, KindConflict, KindOf(err))

	_, err = f.engine.Retire(ctx, x.ID)
	assert.Equal(t, KindConflict, KindOf(err))

	back, err := f.engine.Reinstate(ctx, x.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PokemonAvailable, back.Status)
	assert.Equal(t, int64(3), back.Version)

	_, err = f.engine.Reinstate(ctx, uuid.NewString())
	assert.Equal(t, KindNotFound, KindOf(err))

	f.reserve(t, "pikachu", x)
	_, err = f.engine.Retire(ctx, x.ID)
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestReserveAcceptsAnyUUIDSpelling(t *testing.T) {
	tests := []struct {
		name  string
		spell func(id string) string
	}{
		{"upper case", strings.ToUpper},
		{"braces", func(id string) string { return "{" + id + "}" }},
		{"urn", func(id string) string { return "urn:uuid:" + id }},
		{"no hyphens", func(id string) string { return strings.ReplaceAll(id, "-", "") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			x := f.pokemon(t, "Zapdos")

			res, err := f.engine.Reserve(context.Background(), ReserveRequest{
				PokemonIDs: []string{tt.spell(x.ID)},
				Password:   "pikachu",
			})
			require.NoError(t, err)
			require.Len(t, res.EntryIDs, 1)
			assert.Equal(t, x.ID, f.entry(t, res.EntryIDs[0]).PokemonID)
			assert.Equal(t, model.PokemonBorrowed, f.reload(t, x.ID).Status)
		})
	}
}

func TestReserveCollapsesMixedCaseDuplicates(t *testing.T) {
	f := newFixture(t)
	x := f.pokemon(t, "Jolteon")

	res, err := f.engine.Reserve(context.Background(), ReserveRequest{
		PokemonIDs:       []string{x.ID, strings.ToUpper(x.ID)},
		Password:         "pikachu",
		ExpectedVersions: map[string]int64{strings.ToUpper(x.ID): x.Version},
	})
	require.NoError(t, err)
	assert.Len(t, res.EntryIDs, 1)
	assert.Equal(t, int64(2), f.reload(t, x.ID).Version)
}

func TestNonCanonicalIDsForRetireAndGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	x := f.pokemon(t, "Magneton")
	y := f.pokemon(t, "Magnezone")

	p, err := f.engine.Retire(ctx, strings.ToUpper(x.ID))
	require.NoError(t, err)
	assert.Equal(t, model.PokemonInactive, p.Status)

	list, err := store.CreateFavoriteList(ctx, f.db, "Magnets", []string{y.ID})
	require.NoError(t, err)
	res, err := f.engine.ReserveFromGroup(ctx, strings.ToUpper(list.ID), "pikachu", "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.ReservedCount)
}

func TestInTxKeepsCauseWhenRollbackFails(t *testing.T) {
	f := newFixture(t)
	x := f.pokemon(t, "Porygon")
	ctx := context.Background()

	var logs bytes.Buffer
	f.engine.log = slog.New(slog.NewTextHandler(&logs, nil))
	cause := errors.New("out of pokeballs")

	// Ending the transaction behind database/sql's back makes its own
	// rollback fail.
	err := f.engine.inTx(ctx, "test", func(tx *sqlx.Tx) error {
		_, err := store.TransitionPokemon(ctx, tx, x.ID, model.PokemonAvailable, model.PokemonBorrowed)
		require.NoError(t, err)
		_, err = tx.ExecContext(ctx, "ROLLBACK")
		require.NoError(t, err)
		return cause
	})

	assert.Same(t, cause, err)
	assert.Contains(t, logs.String(), "rollback failed")
	assert.Contains(t, logs.String(), "out of pokeballs")
	assert.Equal(t, model.PokemonAvailable, f.reload(t, x.ID).Status)
}

func TestInTxBodyEndingTransactionItself(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var logs bytes.Buffer
	f.engine.log = slog.New(slog.NewTextHandler(&logs, nil))
	cause := errors.New("gave up")

	err := f.engine.inTx(ctx, "test", func(tx *sqlx.Tx) error {
		require.NoError(t, tx.Rollback())
		return cause
	})

	assert.Same(t, cause, err)
	assert.NotContains(t, logs.String(), "rollback failed")
}
