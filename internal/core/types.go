package core

import "time"

// Note is a persisted guestbook entry. Notes are immutable once saved;
// there is no update or delete path.
type Note struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Author    *string   `json:"author,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	IPHash    string    `json:"-"`
	Meta      NoteMeta  `json:"-"`
}

// NoteMeta carries request metadata captured at submission time.
type NoteMeta struct {
	UserAgent *string
	ClientID  *string
}

// SortDirection is a normalized sort direction for note listings.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// NoteQuery describes one page of notes to fetch.
type NoteQuery struct {
	Page      int
	Size      int
	SortField string
	SortDir   SortDirection
}

// NotePage is one page of a note listing.
type NotePage struct {
	Page       int     `json:"page"`
	Size       int     `json:"size"`
	TotalPages int     `json:"totalPages"`
	TotalItems int64   `json:"totalItems"`
	Items      []*Note `json:"items"`
}
