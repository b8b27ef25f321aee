package handlers

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/echowall/echowall/internal/core"
	"github.com/echowall/echowall/internal/core/engine"
	apperrors "github.com/echowall/echowall/internal/errors"
)

// Input bounds enforced at the boundary, before the pipeline runs.
const (
	maxMessageChars = 1000
	maxAuthorChars  = 100
)

// NoteAPI is the service surface the note handlers depend on.
type NoteAPI interface {
	Submit(ctx context.Context, req engine.SubmitRequest) (*core.Note, error)
	List(ctx context.Context, page, size int, sortField, sortDir string) (*core.NotePage, error)
	Get(ctx context.Context, id string) (*core.Note, error)
}

var noteService NoteAPI

// SetNoteService injects the note service used by the handlers.
func SetNoteService(svc NoteAPI) {
	noteService = svc
}

// CreateNoteRequest is the POST /api/v1/notes body.
type CreateNoteRequest struct {
	Message string  `json:"message"`
	Author  *string `json:"author"`
}

// CreateNoteHandler handles note submissions.
func CreateNoteHandler(w http.ResponseWriter, r *http.Request) {
	if noteService == nil {
		respondWithError(w, r, apperrors.NewInternal("note service not initialized"))
		return
	}

	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, r, apperrors.NewInvalidJSON())
		return
	}

	if err := validateCreateNote(&req); err != nil {
		respondWithError(w, r, err)
		return
	}

	var userAgent *string
	if ua := r.Header.Get("User-Agent"); ua != "" {
		userAgent = &ua
	}

	note, err := noteService.Submit(r.Context(), engine.SubmitRequest{
		Message:       req.Message,
		Author:        req.Author,
		ClientAddress: clientAddress(r),
		UserAgent:     userAgent,
	})
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, note)
}

// ListNotesHandler handles paginated note listings.
func ListNotesHandler(w http.ResponseWriter, r *http.Request) {
	if noteService == nil {
		respondWithError(w, r, apperrors.NewInternal("note service not initialized"))
		return
	}

	page, err := queryInt(r, "page", 0)
	if err != nil {
		respondWithError(w, r, apperrors.NewValidation("Validation failed: page must be a number"))
		return
	}
	size, err := queryInt(r, "size", engine.DefaultPageSize)
	if err != nil {
		respondWithError(w, r, apperrors.NewValidation("Validation failed: size must be a number"))
		return
	}

	sort := r.URL.Query().Get("sort")
	if sort == "" {
		sort = "createdAt,desc"
	}
	sortField, sortDir := splitSort(sort)

	pageResult, err := noteService.List(r.Context(), page, size, sortField, sortDir)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, pageResult)
}

// GetNoteHandler handles single note lookups.
func GetNoteHandler(w http.ResponseWriter, r *http.Request) {
	if noteService == nil {
		respondWithError(w, r, apperrors.NewInternal("note service not initialized"))
		return
	}

	id := chi.URLParam(r, "id")

	note, err := noteService.Get(r.Context(), id)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	if note == nil {
		respondWithError(w, r, apperrors.NewNotFound("Note not found"))
		return
	}

	writeJSON(w, http.StatusOK, note)
}

func validateCreateNote(req *CreateNoteRequest) error {
	if strings.TrimSpace(req.Message) == "" {
		return apperrors.NewValidation("Validation failed: message is required")
	}
	if utf8.RuneCountInString(req.Message) > maxMessageChars {
		return apperrors.NewValidation("Validation failed: message must be between 1 and 1000 characters")
	}
	if req.Author != nil && utf8.RuneCountInString(*req.Author) > maxAuthorChars {
		return apperrors.NewValidation("Validation failed: author must be at most 100 characters")
	}
	return nil
}

// clientAddress derives the client address from the first X-Forwarded-For
// entry, falling back to the socket address with the port stripped.
func clientAddress(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if addr := strings.TrimSpace(first); addr != "" {
			return addr
		}
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func splitSort(sort string) (field, direction string) {
	field, direction, found := strings.Cut(sort, ",")
	if !found {
		direction = "desc"
	}
	return strings.TrimSpace(field), strings.TrimSpace(direction)
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	return value, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
