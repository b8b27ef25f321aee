//go:build cgo

package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echowall/echowall/internal/config"
	"github.com/echowall/echowall/internal/core"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(context.Background(), config.StoreConfig{
		Driver: "libsql",
		Path:   filepath.Join(t.TempDir(), "notes.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func strptr(s string) *string {
	return &s
}

func TestStore_SaveAndGetNote(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	saved, err := s.SaveNote(ctx, &core.Note{
		Message:   "Hello world",
		Author:    strptr("Ada"),
		CreatedAt: created,
		IPHash:    "abc123",
		Meta: core.NoteMeta{
			UserAgent: strptr("test-agent/1.0"),
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID, "save assigns an identifier")

	got, err := s.GetNote(ctx, saved.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, "Hello world", got.Message)
	if assert.NotNil(t, got.Author) {
		assert.Equal(t, "Ada", *got.Author)
	}
	assert.Equal(t, created, got.CreatedAt)
	assert.Equal(t, "abc123", got.IPHash)
	if assert.NotNil(t, got.Meta.UserAgent) {
		assert.Equal(t, "test-agent/1.0", *got.Meta.UserAgent)
	}
	assert.Nil(t, got.Meta.ClientID)
}

func TestStore_SaveNoteWithoutAuthor(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	saved, err := s.SaveNote(ctx, &core.Note{
		Message:   "anonymous",
		CreatedAt: time.Now().UTC(),
		IPHash:    "abc123",
	})
	require.NoError(t, err)

	got, err := s.GetNote(ctx, saved.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.Author)
}

func TestStore_GetNoteMissing(t *testing.T) {
	s := openTestStore(t)

	note, err := s.GetNote(context.Background(), "does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, note, "missing note is (nil, nil), not an error")
}

func TestStore_ListNotes(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := s.SaveNote(ctx, &core.Note{
			ID:        fmt.Sprintf("note-%d", i),
			Message:   fmt.Sprintf("message %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			IPHash:    "abc123",
		})
		require.NoError(t, err)
	}

	t.Run("newest first by default", func(t *testing.T) {
		page, err := s.ListNotes(ctx, core.NoteQuery{
			Page: 0, Size: 2, SortField: "createdAt", SortDir: core.SortDesc,
		})
		require.NoError(t, err)

		assert.Equal(t, int64(5), page.TotalItems)
		assert.Equal(t, 3, page.TotalPages)
		require.Len(t, page.Items, 2)
		assert.Equal(t, "note-4", page.Items[0].ID)
		assert.Equal(t, "note-3", page.Items[1].ID)
	})

	t.Run("second page continues the ordering", func(t *testing.T) {
		page, err := s.ListNotes(ctx, core.NoteQuery{
			Page: 1, Size: 2, SortField: "createdAt", SortDir: core.SortDesc,
		})
		require.NoError(t, err)

		require.Len(t, page.Items, 2)
		assert.Equal(t, "note-2", page.Items[0].ID)
		assert.Equal(t, "note-1", page.Items[1].ID)
	})

	t.Run("ascending sort", func(t *testing.T) {
		page, err := s.ListNotes(ctx, core.NoteQuery{
			Page: 0, Size: 5, SortField: "createdAt", SortDir: core.SortAsc,
		})
		require.NoError(t, err)

		require.Len(t, page.Items, 5)
		assert.Equal(t, "note-0", page.Items[0].ID)
		assert.Equal(t, "note-4", page.Items[4].ID)
	})

	t.Run("unknown sort field falls back to created_at", func(t *testing.T) {
		page, err := s.ListNotes(ctx, core.NoteQuery{
			Page: 0, Size: 5, SortField: "ipHash", SortDir: core.SortDesc,
		})
		require.NoError(t, err)

		require.Len(t, page.Items, 5)
		assert.Equal(t, "note-4", page.Items[0].ID)
	})

	t.Run("page past the end is empty", func(t *testing.T) {
		page, err := s.ListNotes(ctx, core.NoteQuery{
			Page: 9, Size: 2, SortField: "createdAt", SortDir: core.SortDesc,
		})
		require.NoError(t, err)

		assert.Empty(t, page.Items)
		assert.Equal(t, int64(5), page.TotalItems)
	})
}
