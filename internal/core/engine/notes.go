package engine

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/echowall/echowall/internal/core"
	apperrors "github.com/echowall/echowall/internal/errors"
	"github.com/echowall/echowall/internal/metrics"
	"github.com/echowall/echowall/internal/observability"
)

// RateLimitMessage is the user-facing message for rejected submissions.
const RateLimitMessage = "Rate limit exceeded. Please try again later."

// Listing bounds.
const (
	DefaultPageSize  = 20
	MaxPageSize      = 100
	DefaultSortField = "createdAt"
)

// NoteStore persists notes. GetNote returns (nil, nil) for a missing id.
type NoteStore interface {
	SaveNote(ctx context.Context, note *core.Note) (*core.Note, error)
	GetNote(ctx context.Context, id string) (*core.Note, error)
	ListNotes(ctx context.Context, query core.NoteQuery) (*core.NotePage, error)
}

// TextCleaner strips markup from user-supplied text.
type TextCleaner interface {
	Clean(text string) string
	CleanOptional(text *string) *string
}

// SubmitRequest is a validated note submission. The boundary layer has
// already checked lengths and blankness.
type SubmitRequest struct {
	Message       string
	Author        *string
	ClientAddress string
	UserAgent     *string
}

// NoteService orchestrates the write pipeline (hash, rate-check,
// sanitize, persist, strictly in that order) and the read pass-throughs.
type NoteService struct {
	Store   NoteStore
	Limiter *RateLimiter
	Hasher  *core.IdentityHasher
	Cleaner TextCleaner

	// Clock overrides time.Now for tests.
	Clock func() time.Time
}

// Submit runs the write pipeline. A rate-limit rejection short-circuits
// before any sanitization or storage work. The consumed token is not
// returned if the storage write subsequently fails.
func (s *NoteService) Submit(ctx context.Context, req SubmitRequest) (*core.Note, error) {
	ipHash := s.Hasher.Hash(req.ClientAddress)

	if !s.Limiter.TryConsume(ipHash) {
		metrics.RecordRateLimited()
		if observability.ServerLogger != nil {
			observability.ServerLogger.Warn("Rate limit exceeded",
				zap.String("ipHash", ipHash))
		}
		return nil, apperrors.NewRateLimited(RateLimitMessage)
	}

	note := &core.Note{
		Message:   s.Cleaner.Clean(req.Message),
		Author:    s.Cleaner.CleanOptional(req.Author),
		CreatedAt: s.now(),
		IPHash:    ipHash,
		Meta:      core.NoteMeta{UserAgent: req.UserAgent},
	}

	saved, err := s.Store.SaveNote(ctx, note)
	if err != nil {
		metrics.RecordStoreError("save")
		return nil, apperrors.WrapDatabase(err, "failed to save note")
	}

	metrics.RecordNoteCreated()
	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Created note",
			zap.String("id", saved.ID))
	}

	return saved, nil
}

// List fetches one page of notes, clamping size to [1, MaxPageSize] and
// normalizing the sort direction.
func (s *NoteService) List(ctx context.Context, page, size int, sortField, sortDir string) (*core.NotePage, error) {
	if page < 0 {
		page = 0
	}
	if size < 1 {
		size = 1
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	field := strings.TrimSpace(sortField)
	if field == "" {
		field = DefaultSortField
	}

	dir := core.SortDesc
	if strings.EqualFold(strings.TrimSpace(sortDir), string(core.SortAsc)) {
		dir = core.SortAsc
	}

	pageResult, err := s.Store.ListNotes(ctx, core.NoteQuery{
		Page:      page,
		Size:      size,
		SortField: field,
		SortDir:   dir,
	})
	if err != nil {
		metrics.RecordStoreError("list")
		return nil, apperrors.WrapDatabase(err, "failed to list notes")
	}
	return pageResult, nil
}

// Get fetches a single note by id; (nil, nil) when absent.
func (s *NoteService) Get(ctx context.Context, id string) (*core.Note, error) {
	note, err := s.Store.GetNote(ctx, id)
	if err != nil {
		metrics.RecordStoreError("get")
		return nil, apperrors.WrapDatabase(err, "failed to fetch note")
	}
	return note, nil
}

func (s *NoteService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}
