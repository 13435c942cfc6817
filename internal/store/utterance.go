package store

import (
	"database/sql"
	"time"
)

// Utterance sources.
const (
	SourceSpeech = "speech"
	SourceHTTP   = "http"
)

// Utterance is one final transcript and what it matched.
type Utterance struct {
	ID          int64
	Text        string
	CommandID   string
	CommandName string
	Matched     bool
	Source      string
	ReceivedAt  time.Time
}

// UtteranceRepository records utterance history.
type UtteranceRepository struct {
	db *sql.DB
}

// Utterances returns the utterance repository for this store.
func (s *Store) Utterances() *UtteranceRepository {
	return &UtteranceRepository{db: s.db}
}

// Record inserts u and sets its ID. A zero ReceivedAt is set to now.
func (r *UtteranceRepository) Record(u *Utterance) error {
	if u.ReceivedAt.IsZero() {
		u.ReceivedAt = time.Now()
	}
	if u.Source == "" {
		u.Source = SourceSpeech
	}

	var commandID any
	if u.CommandID != "" {
		commandID = u.CommandID
	}

	result, err := r.db.Exec(
		`INSERT INTO utterances (text, command_id, command_name, matched, source, received_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.Text, commandID, u.CommandName, u.Matched, u.Source, u.ReceivedAt,
	)
	if err != nil {
		return err
	}
	u.ID, err = result.LastInsertId()
	return err
}

// Recent returns up to limit utterances, newest first.
func (r *UtteranceRepository) Recent(limit int) ([]*Utterance, error) {
	rows, err := r.db.Query(
		`SELECT id, text, COALESCE(command_id, ''), command_name, matched, source, received_at
		 FROM utterances ORDER BY received_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Utterance
	for rows.Next() {
		u := &Utterance{}
		var matched int
		if err := rows.Scan(&u.ID, &u.Text, &u.CommandID, &u.CommandName, &matched, &u.Source, &u.ReceivedAt); err != nil {
			return nil, err
		}
		u.Matched = matched != 0
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Prune deletes all but the newest keep utterances and returns how many
// rows were removed.
func (r *UtteranceRepository) Prune(keep int) (int64, error) {
	result, err := r.db.Exec(
		`DELETE FROM utterances WHERE id NOT IN (
			SELECT id FROM utterances ORDER BY received_at DESC, id DESC LIMIT ?
		)`,
		keep,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
