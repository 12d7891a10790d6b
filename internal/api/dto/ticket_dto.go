package dto

import (
	"time"

	"github.com/edusupport/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload for opening a ticket. Attachment is optional
// metadata; the file itself is uploaded out of band.
type CreateTicketRequest struct {
	Title       string                   `json:"title"`
	Description string                   `json:"description"`
	Category    string                   `json:"category"`
	Attachment  *CreateAttachmentRequest `json:"attachment,omitempty"`
}

// CreateAttachmentRequest attachment metadata at ticket creation.
type CreateAttachmentRequest struct {
	FileName  string `json:"fileName"`
	MimeType  string `json:"mimeType"`
	SizeBytes int64  `json:"sizeBytes"`
}

// UpdateTicketStatusRequest payload for support triage.
type UpdateTicketStatusRequest struct {
	Status   string `json:"status"`
	Priority string `json:"priority"`
}

// CreateMessageRequest payload for a thread entry.
type CreateMessageRequest struct {
	Body string `json:"body"`
}

// TicketResponse is the public shape of a ticket.
type TicketResponse struct {
	ID            string                `json:"id"`
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	Category      string                `json:"category"`
	Status        domain.TicketStatus   `json:"status"`
	Priority      domain.TicketPriority `json:"priority"`
	RequesterID   string                `json:"requesterId"`
	RequesterName string                `json:"requesterName"`
	SupportID     *string               `json:"supportId,omitempty"`
	CreatedAt     time.Time             `json:"createdAt"`
	UpdatedAt     time.Time             `json:"updatedAt"`
}

// MessageResponse is the public shape of a thread entry.
type MessageResponse struct {
	ID         string      `json:"id"`
	TicketID   string      `json:"ticketId"`
	AuthorID   string      `json:"authorId"`
	AuthorName string      `json:"authorName"`
	AuthorRole domain.Role `json:"authorRole"`
	Body       string      `json:"body"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// AttachmentResponse is the public shape of attachment metadata.
type AttachmentResponse struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticketId"`
	FileName  string    `json:"fileName"`
	MimeType  string    `json:"mimeType"`
	SizeBytes int64     `json:"sizeBytes"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:            ticket.ID,
		Title:         ticket.Title,
		Description:   ticket.Description,
		Category:      ticket.Category,
		Status:        ticket.Status,
		Priority:      ticket.Priority,
		RequesterID:   ticket.RequesterID,
		RequesterName: ticket.RequesterName,
		SupportID:     ticket.SupportID,
		CreatedAt:     ticket.CreatedAt,
		UpdatedAt:     ticket.UpdatedAt,
	}
}

// NewMessageResponse maps a domain message.
func NewMessageResponse(msg *domain.TicketMessage) MessageResponse {
	return MessageResponse{
		ID:         msg.ID,
		TicketID:   msg.TicketID,
		AuthorID:   msg.AuthorID,
		AuthorName: msg.AuthorName,
		AuthorRole: msg.AuthorRole,
		Body:       msg.Body,
		CreatedAt:  msg.CreatedAt,
	}
}

// NewAttachmentResponse maps domain attachment metadata.
func NewAttachmentResponse(att *domain.Attachment) AttachmentResponse {
	return AttachmentResponse{
		ID:        att.ID,
		TicketID:  att.TicketID,
		FileName:  att.FileName,
		MimeType:  att.MimeType,
		SizeBytes: att.SizeBytes,
		CreatedAt: att.CreatedAt,
	}
}
