package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/gridclash/arena/internal/core/event"
	"github.com/gridclash/arena/internal/engine"
	"github.com/gridclash/arena/internal/replay"
	"github.com/gridclash/arena/internal/world"
)

// flushEvery is how many rounds share one transaction.
const flushEvery = 100

// ReplayStore records a match into SQLite. It implements engine.Recorder.
// Rounds are batched into transactions; Close commits whatever is pending.
type ReplayStore struct {
	db      *DB
	ctx     context.Context
	matchID string
	tx      *sqlx.Tx
	pending int
}

// CreateReplayStore opens the database at path for recording. ctx bounds
// every statement the store runs.
func CreateReplayStore(ctx context.Context, path string, log *zap.Logger) (*ReplayStore, error) {
	db, err := OpenDB(ctx, path, log)
	if err != nil {
		return nil, err
	}
	return &ReplayStore{db: db, ctx: ctx}, nil
}

func (s *ReplayStore) begin() (*sqlx.Tx, error) {
	if s.tx != nil {
		return s.tx, nil
	}
	tx, err := s.db.X.BeginTxx(s.ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("replay begin: %w", err)
	}
	s.tx = tx
	return tx, nil
}

func (s *ReplayStore) commit() error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx, s.pending = nil, 0
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replay commit: %w", err)
	}
	return nil
}

func (s *ReplayStore) WriteHeader(h engine.Header) error {
	b, err := json.Marshal(h)
	if err != nil {
		return err
	}
	tx, err := s.begin()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(s.ctx,
		`INSERT INTO matches (match_id, map, seed, round_limit, header_json) VALUES (?, ?, ?, ?, ?)`,
		h.MatchID, h.Map, h.Seed, h.Rounds, string(b),
	); err != nil {
		return fmt.Errorf("insert match %s: %w", h.MatchID, err)
	}
	s.matchID = h.MatchID
	return s.commit()
}

func (s *ReplayStore) WriteRound(rr engine.RoundRecord) error {
	if s.matchID == "" {
		return errors.New("replay store: round before header")
	}
	b, err := json.Marshal(rr.Events)
	if err != nil {
		return err
	}
	tx, err := s.begin()
	if err != nil {
		return err
	}
	a, bt := rr.Teams[world.TeamA], rr.Teams[world.TeamB]
	if _, err := tx.ExecContext(s.ctx,
		`INSERT INTO rounds (match_id, round, digest, reserve_delta_a, harvested_delta_a,
		                     reserve_delta_b, harvested_delta_b, event_count, events_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.matchID, rr.Round, rr.Digest, a.ReserveDelta, a.HarvestedDelta,
		bt.ReserveDelta, bt.HarvestedDelta, len(rr.Events), string(b),
	); err != nil {
		return fmt.Errorf("insert round %d: %w", rr.Round, err)
	}
	s.pending++
	if s.pending >= flushEvery {
		return s.commit()
	}
	return nil
}

func (s *ReplayStore) WriteFooter(f engine.Footer) error {
	tx, err := s.begin()
	if err != nil {
		return err
	}
	out, err := json.Marshal(f.Outcome)
	if err != nil {
		return err
	}
	var winner any
	if f.Outcome.Winner.Valid() {
		winner = f.Outcome.Winner.String()
	}
	if _, err := tx.ExecContext(s.ctx,
		`UPDATE matches SET rounds = ?, winner = ?, factor = ?, aborted = ?, reason = ?, outcome_json = ?, finished = 1
		 WHERE match_id = ?`,
		f.Rounds, winner, string(f.Outcome.Factor), f.Outcome.Aborted, f.Outcome.Reason, string(out), f.MatchID,
	); err != nil {
		return fmt.Errorf("finish match %s: %w", f.MatchID, err)
	}
	return s.commit()
}

// Close commits pending rounds and closes the database.
func (s *ReplayStore) Close() error {
	err := s.commit()
	if cerr := s.db.Close(); err == nil {
		err = cerr
	}
	return err
}

type matchRow struct {
	MatchID  string         `db:"match_id"`
	Header   string         `db:"header_json"`
	Rounds   int            `db:"rounds"`
	Outcome  sql.NullString `db:"outcome_json"`
	Finished bool           `db:"finished"`
}

type roundRow struct {
	Round           int    `db:"round"`
	Digest          string `db:"digest"`
	ReserveDeltaA   int    `db:"reserve_delta_a"`
	HarvestedDeltaA int    `db:"harvested_delta_a"`
	ReserveDeltaB   int    `db:"reserve_delta_b"`
	HarvestedDeltaB int    `db:"harvested_delta_b"`
	Events          string `db:"events_json"`
}

// LoadReplay reads the match stored at path back into replay form.
func LoadReplay(ctx context.Context, path string) (*replay.Replay, error) {
	db, err := OpenDB(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var m matchRow
	if err := db.X.GetContext(ctx, &m,
		`SELECT match_id, header_json, rounds, outcome_json, finished FROM matches LIMIT 1`,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w: no match", path, replay.ErrCorrupt)
		}
		return nil, fmt.Errorf("load match: %w", err)
	}
	rep := &replay.Replay{}
	if err := json.Unmarshal([]byte(m.Header), &rep.Header); err != nil {
		return nil, fmt.Errorf("%w: header: %v", replay.ErrCorrupt, err)
	}

	var rows []roundRow
	if err := db.X.SelectContext(ctx, &rows,
		`SELECT round, digest, reserve_delta_a, harvested_delta_a, reserve_delta_b, harvested_delta_b, events_json
		 FROM rounds WHERE match_id = ? ORDER BY round`, m.MatchID,
	); err != nil {
		return nil, fmt.Errorf("load rounds: %w", err)
	}
	rep.Rounds = make([]engine.RoundRecord, 0, len(rows))
	for _, r := range rows {
		rr := engine.RoundRecord{Round: r.Round, Digest: r.Digest}
		rr.Teams[world.TeamA] = world.TeamStats{ReserveDelta: r.ReserveDeltaA, HarvestedDelta: r.HarvestedDeltaA}
		rr.Teams[world.TeamB] = world.TeamStats{ReserveDelta: r.ReserveDeltaB, HarvestedDelta: r.HarvestedDeltaB}
		if err := json.Unmarshal([]byte(r.Events), &rr.Events); err != nil {
			return nil, fmt.Errorf("%w: round %d: %v", replay.ErrCorrupt, r.Round, err)
		}
		if rr.Events == nil {
			rr.Events = []event.Record{}
		}
		rep.Rounds = append(rep.Rounds, rr)
	}

	if m.Finished && m.Outcome.Valid {
		var out world.Outcome
		if err := json.Unmarshal([]byte(m.Outcome.String), &out); err != nil {
			return nil, fmt.Errorf("%w: outcome: %v", replay.ErrCorrupt, err)
		}
		rep.Footer = &engine.Footer{MatchID: m.MatchID, Rounds: m.Rounds, Outcome: out}
	}
	return rep, nil
}
