package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echowall/echowall/internal/config"
	"github.com/echowall/echowall/internal/core"
	"github.com/echowall/echowall/internal/core/engine"
	apperrors "github.com/echowall/echowall/internal/errors"
	"github.com/echowall/echowall/internal/server"
	"github.com/echowall/echowall/internal/server/handlers"
)

// memoryStore is an in-process NoteStore so the full HTTP stack can be
// exercised without a database file.
type memoryStore struct {
	mu    sync.Mutex
	notes map[string]*core.Note
	seq   int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{notes: make(map[string]*core.Note)}
}

func (m *memoryStore) SaveNote(ctx context.Context, note *core.Note) (*core.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	if note.ID == "" {
		note.ID = fmt.Sprintf("note-%d", m.seq)
	}
	stored := *note
	m.notes[stored.ID] = &stored
	return &stored, nil
}

func (m *memoryStore) GetNote(ctx context.Context, id string) (*core.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	note, ok := m.notes[id]
	if !ok {
		return nil, nil
	}
	out := *note
	return &out, nil
}

func (m *memoryStore) ListNotes(ctx context.Context, query core.NoteQuery) (*core.NotePage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := make([]*core.Note, 0, len(m.notes))
	for _, note := range m.notes {
		out := *note
		items = append(items, &out)
	}
	sort.Slice(items, func(i, j int) bool {
		if query.SortDir == core.SortAsc {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	total := int64(len(items))
	start := query.Page * query.Size
	if start > len(items) {
		start = len(items)
	}
	end := start + query.Size
	if end > len(items) {
		end = len(items)
	}

	return &core.NotePage{
		Page:       query.Page,
		Size:       query.Size,
		TotalPages: int((total + int64(query.Size) - 1) / int64(query.Size)),
		TotalItems: total,
		Items:      items[start:end],
	}, nil
}

func newTestStack(t *testing.T, capacity int) http.Handler {
	t.Helper()

	svc := &engine.NoteService{
		Store:   newMemoryStore(),
		Limiter: engine.NewRateLimiter(capacity, time.Minute),
		Hasher:  core.NewIdentityHasher("integration-salt"),
		Cleaner: core.NewSanitizer(),
	}
	handlers.SetNoteService(svc)
	t.Cleanup(func() {
		handlers.SetNoteService(nil)
		handlers.ResetHTTPErrorResponder()
	})

	srv := server.New(&config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 0},
		Notes:  config.NotesConfig{CORSOrigins: []string{"*"}},
	})
	return srv.Handler()
}

func postNote(handler http.Handler, address, payload string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notes", bytes.NewBufferString(payload))
	req.RemoteAddr = address + ":51000"
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestNoteSubmissionFlow(t *testing.T) {
	handler := newTestStack(t, 5)

	rec := postNote(handler, "203.0.113.7", `{"message": " <b>Hello</b> wall ", "author": "<i>Ada</i>"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created core.Note
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Hello wall", created.Message, "markup is stripped before persisting")
	if assert.NotNil(t, created.Author) {
		assert.Equal(t, "Ada", *created.Author)
	}

	// The stored note is readable through the single-note endpoint.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notes/"+created.ID, nil)
	getRec := httptest.NewRecorder()
	handler.ServeHTTP(getRec, req)

	require.Equal(t, http.StatusOK, getRec.Code)

	var fetched core.Note
	require.NoError(t, json.NewDecoder(getRec.Body).Decode(&fetched))
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, "Hello wall", fetched.Message)

	// And through the listing.
	listReq := httptest.NewRequest(http.MethodGet, "/api/v1/notes", nil)
	listRec := httptest.NewRecorder()
	handler.ServeHTTP(listRec, listReq)

	require.Equal(t, http.StatusOK, listRec.Code)

	var page core.NotePage
	require.NoError(t, json.NewDecoder(listRec.Body).Decode(&page))
	assert.Equal(t, int64(1), page.TotalItems)
	require.Len(t, page.Items, 1)
	assert.Equal(t, created.ID, page.Items[0].ID)
}

func TestRateLimitAcrossRequests(t *testing.T) {
	handler := newTestStack(t, 2)

	for i := 0; i < 2; i++ {
		rec := postNote(handler, "203.0.113.7", `{"message": "hello"}`)
		require.Equal(t, http.StatusCreated, rec.Code, "submission %d should be admitted", i+1)
	}

	rec := postNote(handler, "203.0.113.7", `{"message": "hello"}`)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	var body apperrors.ErrorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, engine.RateLimitMessage, body.Message)
	assert.Equal(t, "/api/v1/notes", body.Path)

	// A different client address is unaffected.
	other := postNote(handler, "203.0.113.99", `{"message": "hello"}`)
	assert.Equal(t, http.StatusCreated, other.Code)

	// Rejected submissions never reach the store.
	listReq := httptest.NewRequest(http.MethodGet, "/api/v1/notes", nil)
	listRec := httptest.NewRecorder()
	handler.ServeHTTP(listRec, listReq)

	var page core.NotePage
	require.NoError(t, json.NewDecoder(listRec.Body).Decode(&page))
	assert.Equal(t, int64(3), page.TotalItems)
}

func TestForwardedAddressSharesBucket(t *testing.T) {
	handler := newTestStack(t, 1)

	send := func(forwarded string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/notes", bytes.NewBufferString(`{"message": "hi"}`))
		req.RemoteAddr = "10.0.0.1:51000"
		req.Header.Set("X-Forwarded-For", forwarded)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusCreated, send("203.0.113.7").Code)

	// Same forwarded client through a different proxy hop is still limited.
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.7, 70.41.3.18").Code)
}
