package domain

import "time"

// TicketMessage is a single entry in a ticket's conversation thread.
type TicketMessage struct {
	ID         string
	TicketID   string
	AuthorID   string
	AuthorName string
	AuthorRole Role
	Body       string
	CreatedAt  time.Time
}

// Attachment records metadata for a file attached to a ticket. The file
// contents live in external storage under StorageKey.
type Attachment struct {
	ID         string
	TicketID   string
	FileName   string
	StorageKey string
	MimeType   string
	SizeBytes  int64
	CreatedAt  time.Time
}
