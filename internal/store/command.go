package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/orbis/internal/geom"
	"github.com/ayusman/orbis/internal/voice"
)

// Command is a voice command row.
type Command struct {
	ID        string
	Name      string
	Keywords  []string
	Rotation  geom.Vec2
	Position  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Voice converts the row to the interpreter's command type.
func (c *Command) Voice() voice.Command {
	return voice.Command{
		ID:       c.ID,
		Name:     c.Name,
		Keywords: append([]string(nil), c.Keywords...),
		Rotation: c.Rotation,
	}
}

// CommandRepository provides CRUD operations for voice commands.
type CommandRepository struct {
	db *sql.DB
}

// Commands returns the command repository for this store.
func (s *Store) Commands() *CommandRepository {
	return &CommandRepository{db: s.db}
}

const commandColumns = `id, name, keywords, pitch, yaw, position, created_at, updated_at`

// Create inserts a command. A zero Position appends it after the last one.
func (r *CommandRepository) Create(c *Command) error {
	keywords, err := encodeKeywords(c.Keywords)
	if err != nil {
		return err
	}

	if c.Position == 0 {
		if err := r.db.QueryRow(`SELECT COALESCE(MAX(position), 0) + 1 FROM voice_commands`).Scan(&c.Position); err != nil {
			return err
		}
	}

	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err = r.db.Exec(
		`INSERT INTO voice_commands (`+commandColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, keywords, c.Rotation.X, c.Rotation.Y, c.Position, c.CreatedAt, c.UpdatedAt,
	)
	return err
}

// GetByID retrieves a command by its ID.
func (r *CommandRepository) GetByID(id string) (*Command, error) {
	row := r.db.QueryRow(`SELECT `+commandColumns+` FROM voice_commands WHERE id = ?`, id)
	c, err := scanCommand(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

// List retrieves all commands in match order.
func (r *CommandRepository) List() ([]*Command, error) {
	rows, err := r.db.Query(`SELECT ` + commandColumns + ` FROM voice_commands ORDER BY position, created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var commands []*Command
	for rows.Next() {
		c, err := scanCommand(rows)
		if err != nil {
			return nil, err
		}
		commands = append(commands, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return commands, nil
}

// VoiceCommands returns the table in match order, ready for the interpreter.
func (r *CommandRepository) VoiceCommands() ([]voice.Command, error) {
	rows, err := r.List()
	if err != nil {
		return nil, err
	}
	out := make([]voice.Command, len(rows))
	for i, c := range rows {
		out[i] = c.Voice()
	}
	return out, nil
}

// Update updates an existing command.
func (r *CommandRepository) Update(c *Command) error {
	keywords, err := encodeKeywords(c.Keywords)
	if err != nil {
		return err
	}
	c.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		`UPDATE voice_commands SET name = ?, keywords = ?, pitch = ?, yaw = ?, position = ?, updated_at = ?
		 WHERE id = ?`,
		c.Name, keywords, c.Rotation.X, c.Rotation.Y, c.Position, c.UpdatedAt, c.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// Delete removes a command by its ID.
func (r *CommandRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM voice_commands WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// Seed inserts commands, in order, when the table is empty. It reports
// whether anything was inserted.
func (r *CommandRepository) Seed(commands []voice.Command) (bool, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM voice_commands`).Scan(&count); err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	now := time.Now()
	for i, c := range commands {
		keywords, err := encodeKeywords(c.Keywords)
		if err != nil {
			return false, err
		}
		if _, err := tx.Exec(
			`INSERT INTO voice_commands (`+commandColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.Name, keywords, c.Rotation.X, c.Rotation.Y, i+1, now, now,
		); err != nil {
			return false, fmt.Errorf("seed %s: %w", c.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCommand(row rowScanner) (*Command, error) {
	c := &Command{}
	var keywords string
	err := row.Scan(&c.ID, &c.Name, &keywords, &c.Rotation.X, &c.Rotation.Y, &c.Position, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(keywords), &c.Keywords); err != nil {
		return nil, fmt.Errorf("decode keywords of %s: %w", c.ID, err)
	}
	return c, nil
}

func encodeKeywords(keywords []string) (string, error) {
	if keywords == nil {
		keywords = []string{}
	}
	b, err := json.Marshal(keywords)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
