package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/echowall/echowall/internal/core"
)

// sortColumns whitelists API sort fields against schema columns.
// Unknown fields fall back to created_at.
var sortColumns = map[string]string{
	"createdAt": "created_at",
	"author":    "author",
	"id":        "id",
}

// SaveNote persists a note, assigning its identifier. The returned note
// carries the assigned id.
func (s *Store) SaveNote(ctx context.Context, note *core.Note) (*core.Note, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if note == nil {
		return nil, errors.New("note is required")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if note.ID == "" {
		note.ID = uuid.NewString()
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO notes (id, message, author, created_at, ip_hash, user_agent, client_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		note.ID,
		note.Message,
		nullString(note.Author),
		note.CreatedAt.UnixMilli(),
		note.IPHash,
		nullString(note.Meta.UserAgent),
		nullString(note.Meta.ClientID),
	)
	if err != nil {
		return nil, fmt.Errorf("insert note: %w", err)
	}

	return note, nil
}

// GetNote fetches a note by id, returning (nil, nil) when absent.
func (s *Store) GetNote(ctx context.Context, id string) (*core.Note, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	row := s.DB.QueryRowContext(ctx, `
		SELECT id, message, author, created_at, ip_hash, user_agent, client_id
		FROM notes
		WHERE id = ?
	`, id)

	note, err := scanNote(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch note: %w", err)
	}

	return note, nil
}

// ListNotes fetches one page of notes ordered by the whitelisted sort
// field, with a total count for pagination metadata.
func (s *Store) ListNotes(ctx context.Context, query core.NoteQuery) (*core.NotePage, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if query.Page < 0 {
		query.Page = 0
	}
	if query.Size < 1 {
		query.Size = 1
	}

	var total int64
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM notes`).Scan(&total); err != nil {
		return nil, fmt.Errorf("count notes: %w", err)
	}

	column, ok := sortColumns[query.SortField]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if query.SortDir == core.SortAsc {
		direction = "ASC"
	}

	// column and direction are whitelisted above, never caller input.
	stmt := fmt.Sprintf(`
		SELECT id, message, author, created_at, ip_hash, user_agent, client_id
		FROM notes
		ORDER BY %s %s, id %s
		LIMIT ? OFFSET ?
	`, column, direction, direction)

	rows, err := s.DB.QueryContext(ctx, stmt, query.Size, query.Page*query.Size)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	items := make([]*core.Note, 0, query.Size)
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		items = append(items, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}

	totalPages := int((total + int64(query.Size) - 1) / int64(query.Size))

	return &core.NotePage{
		Page:       query.Page,
		Size:       query.Size,
		TotalPages: totalPages,
		TotalItems: total,
		Items:      items,
	}, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (*core.Note, error) {
	var (
		note      core.Note
		author    sql.NullString
		createdAt int64
		userAgent sql.NullString
		clientID  sql.NullString
	)

	if err := row.Scan(&note.ID, &note.Message, &author, &createdAt, &note.IPHash, &userAgent, &clientID); err != nil {
		return nil, err
	}

	note.Author = stringPtr(author)
	note.CreatedAt = time.UnixMilli(createdAt).UTC()
	note.Meta = core.NoteMeta{
		UserAgent: stringPtr(userAgent),
		ClientID:  stringPtr(clientID),
	}

	return &note, nil
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	out := value.String
	return &out
}
