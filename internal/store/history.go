package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/pokelend/internal/model"
)

const historyColumns = `h.id, h.pokemon_id, h.pokemon_name, h.trainer_id, h.borrowed_at,
	h.returned, h.returned_at, h.comment, h.due_at`

// historyJoined adds trainer and clan names. Deleted trainers and pokemon
// leave those fields empty.
const historyJoined = `SELECT ` + historyColumns + `, t.name AS trainer_name,
	(SELECT c.name FROM clan_pokemon cp JOIN clan c ON c.id = cp.clan_id
	  WHERE cp.pokemon_id = h.pokemon_id ORDER BY c.name LIMIT 1) AS clan_name
	FROM history h
	LEFT JOIN trainers t ON t.id = h.trainer_id`

// InsertHistory records a new loan and returns its id.
func InsertHistory(ctx context.Context, q Querier, e *model.HistoryEntry) (int64, error) {
	var id int64
	err := q.QueryRowxContext(ctx, q.Rebind(
		`INSERT INTO history (pokemon_id, pokemon_name, trainer_id, borrowed_at, returned, comment, due_at)
		 VALUES (?, ?, ?, ?, FALSE, ?, ?)
		 RETURNING id`),
		e.PokemonID, e.PokemonName, e.TrainerID, e.BorrowedAt, e.Comment, e.DueAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("recording loan of %s: %w", e.PokemonID, err)
	}
	return id, nil
}

// GetHistoryEntry returns a history entry by ID.
func GetHistoryEntry(ctx context.Context, q Querier, id int64) (*model.HistoryEntry, error) {
	e := &model.HistoryEntry{}
	err := sqlx.GetContext(ctx, q, e, q.Rebind(
		`SELECT `+historyColumns+` FROM history h WHERE h.id = ?`), id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting history entry: %w", err)
	}
	return e, nil
}

// ListHistory returns every entry, newest first.
func ListHistory(ctx context.Context, q Querier) ([]model.HistoryEntry, error) {
	var entries []model.HistoryEntry
	err := sqlx.SelectContext(ctx, q, &entries,
		historyJoined+` ORDER BY h.borrowed_at DESC, clan_name, LOWER(h.pokemon_name), h.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	return entries, nil
}

// ListActiveHistory returns entries not yet returned, newest first.
func ListActiveHistory(ctx context.Context, q Querier) ([]model.HistoryEntry, error) {
	var entries []model.HistoryEntry
	err := sqlx.SelectContext(ctx, q, &entries,
		historyJoined+` WHERE h.returned = FALSE ORDER BY h.borrowed_at DESC, h.id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing active history: %w", err)
	}
	return entries, nil
}

// GroupActive folds active entries into loan groups keyed by trainer and
// borrow time, keeping the order of first appearance.
func GroupActive(entries []model.HistoryEntry) []model.LoanGroup {
	type key struct {
		trainer string
		at      int64
	}
	index := map[key]int{}
	var groups []model.LoanGroup

	for _, e := range entries {
		k := key{e.TrainerID, e.BorrowedAt.UnixNano()}
		i, ok := index[k]
		if !ok {
			g := model.LoanGroup{
				TrainerID:  e.TrainerID,
				BorrowedAt: e.BorrowedAt,
				DueAt:      e.DueAt,
				Comment:    e.Comment,
			}
			if e.TrainerName != nil {
				g.TrainerName = *e.TrainerName
			}
			groups = append(groups, g)
			i = len(groups) - 1
			index[k] = i
		}

		clan := "unknown"
		if e.ClanName != nil {
			clan = *e.ClanName
		}
		groups[i].EntryIDs = append(groups[i].EntryIDs, e.ID)
		groups[i].Pokemon = append(groups[i].Pokemon, model.LoanedEntry{
			EntryID: e.ID,
			Name:    e.PokemonName,
			Clan:    clan,
		})
	}
	return groups
}

// ActivePokemonForEntries resolves the distinct pokemon behind the given
// entries that are still out and belong to trainerID.
func ActivePokemonForEntries(ctx context.Context, q Querier, entryIDs []int64, trainerID string) ([]string, error) {
	query, args, err := sqlx.In(
		`SELECT DISTINCT pokemon_id FROM history
		 WHERE id IN (?) AND returned = FALSE AND trainer_id = ?
		 ORDER BY pokemon_id`, entryIDs, trainerID,
	)
	if err != nil {
		return nil, fmt.Errorf("building entry lookup: %w", err)
	}

	var ids []string
	if err := sqlx.SelectContext(ctx, q, &ids, q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("resolving pokemon of entries: %w", err)
	}
	return ids, nil
}

// MarkReturned flips the given entries of trainerID to returned and reports
// how many rows changed. Entries already returned are left untouched.
func MarkReturned(ctx context.Context, q Querier, entryIDs []int64, trainerID string, at time.Time) (int64, error) {
	query, args, err := sqlx.In(
		`UPDATE history SET returned = TRUE, returned_at = ?
		 WHERE id IN (?) AND returned = FALSE AND trainer_id = ?`, at, entryIDs, trainerID,
	)
	if err != nil {
		return 0, fmt.Errorf("building return update: %w", err)
	}

	result, err := q.ExecContext(ctx, q.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("marking entries returned: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading affected rows: %w", err)
	}
	return n, nil
}

// DeleteHistoryEntry removes one entry.
func DeleteHistoryEntry(ctx context.Context, q Querier, id int64) (bool, error) {
	result, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM history WHERE id = ?`), id)
	if err != nil {
		return false, fmt.Errorf("deleting history entry: %w", err)
	}
	return appliedOnce(result)
}

// DeleteAllHistory removes every entry and reports how many were removed.
func DeleteAllHistory(ctx context.Context, q Querier) (int64, error) {
	result, err := q.ExecContext(ctx, `DELETE FROM history`)
	if err != nil {
		return 0, fmt.Errorf("deleting history: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading affected rows: %w", err)
	}
	return n, nil
}
