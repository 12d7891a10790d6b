package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/edusupport/helpdesk-service/internal/auth"
	"github.com/edusupport/helpdesk-service/internal/domain"
	"github.com/edusupport/helpdesk-service/internal/events"
	"github.com/edusupport/helpdesk-service/internal/repository"
	apperrors "github.com/edusupport/helpdesk-service/pkg/util"
)

// TicketService applies role and ownership policy to every ticket
// operation. Listing is scoped at query time: a requester's filter is
// rewritten to their own ID before it reaches the store, so over-fetching
// is structurally impossible.
type TicketService struct {
	tickets     repository.TicketRepository
	messages    repository.TicketMessageRepository
	attachments repository.AttachmentRepository
	dispatcher  events.Dispatcher
}

// TicketDependencies bundles collaborator requirements for the ticket service.
type TicketDependencies struct {
	Tickets     repository.TicketRepository
	Messages    repository.TicketMessageRepository
	Attachments repository.AttachmentRepository
	Dispatcher  events.Dispatcher
}

// NewTicketService builds the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:     deps.Tickets,
		messages:    deps.Messages,
		attachments: deps.Attachments,
		dispatcher:  deps.Dispatcher,
	}
}

// ListFilter captures caller-supplied listing parameters.
type ListFilter struct {
	Status   *domain.TicketStatus
	Category *string
	Search   *string
}

// List returns the tickets the principal may enumerate. Support sees every
// ticket matching the filters; requesters are always pinned to their own
// tickets regardless of what the caller supplied.
func (s *TicketService) List(ctx context.Context, principal *auth.Principal, filter ListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{
		Status:   filter.Status,
		Category: filter.Category,
		Search:   filter.Search,
	}
	if principal.Role != domain.RoleSupport {
		requesterID := principal.ID
		repoFilter.RequesterID = &requesterID
	}

	tickets, err := s.tickets.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.NewStoreFailure(err)
	}
	return tickets, nil
}

// CreateInput describes a new ticket, optionally with one attachment's
// metadata. The attachment file itself is stored externally.
type CreateInput struct {
	Title       string
	Description string
	Category    string
	Attachment  *AttachmentInput
}

// AttachmentInput carries attachment metadata supplied at ticket creation.
type AttachmentInput struct {
	FileName  string
	MimeType  string
	SizeBytes int64
}

// Create opens a new ticket owned by the principal. Ticket and attachment
// rows are written in one transaction; a failed attachment insert rolls the
// ticket back.
func (s *TicketService) Create(ctx context.Context, principal *auth.Principal, input CreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	category := strings.TrimSpace(input.Category)
	if title == "" || description == "" || category == "" {
		return nil, apperrors.NewValidationError("title, description and category required", nil)
	}

	ticket := &domain.Ticket{
		Title:         title,
		Description:   description,
		Category:      category,
		Status:        domain.TicketStatusOpen,
		Priority:      domain.TicketPriorityLow,
		RequesterID:   principal.ID,
		RequesterName: principal.Name,
	}

	var attachment *domain.Attachment
	if input.Attachment != nil {
		attachment = &domain.Attachment{
			FileName:   input.Attachment.FileName,
			StorageKey: uuid.NewString(),
			MimeType:   input.Attachment.MimeType,
			SizeBytes:  input.Attachment.SizeBytes,
		}
	}

	if err := s.tickets.Create(ctx, ticket, attachment); err != nil {
		return nil, apperrors.NewStoreFailure(err)
	}

	s.publish(ctx, events.EventTicketCreated, ticket.ID, principal, events.TicketCreatedPayload{
		Title:         ticket.Title,
		Category:      ticket.Category,
		Priority:      ticket.Priority,
		HasAttachment: attachment != nil,
	})
	return ticket, nil
}

// Get loads a single ticket, enforcing ownership for requesters.
func (s *TicketService) Get(ctx context.Context, principal *auth.Principal, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireTicketAccess(principal, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// UpdateTriage sets status and priority and records the acting support
// agent. Support-only; no state machine constrains the transition.
func (s *TicketService) UpdateTriage(ctx context.Context, principal *auth.Principal, ticketID string, status domain.TicketStatus, priority domain.TicketPriority) (*domain.Ticket, error) {
	if !auth.HasRole(principal, domain.RoleSupport) {
		return nil, apperrors.NewInsufficientRole()
	}
	if !status.Valid() || !priority.Valid() {
		return nil, apperrors.NewValidationError("status and priority must be valid values", nil)
	}

	before, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	if err := s.tickets.UpdateTriage(ctx, ticketID, status, priority, principal.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket")
		}
		return nil, apperrors.NewStoreFailure(err)
	}

	after, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventTicketStatusChanged, ticketID, principal, events.TicketStatusChangedPayload{
		OldStatus:   before.Status,
		NewStatus:   after.Status,
		OldPriority: before.Priority,
		NewPriority: after.Priority,
	})
	return after, nil
}

// AddMessage appends to the ticket's thread. Requesters may only post on
// their own tickets.
func (s *TicketService) AddMessage(ctx context.Context, principal *auth.Principal, ticketID, body string) (*domain.TicketMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("message body required", nil)
	}

	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireTicketAccess(principal, ticket); err != nil {
		return nil, err
	}

	message := &domain.TicketMessage{
		TicketID:   ticketID,
		AuthorID:   principal.ID,
		AuthorName: principal.Name,
		AuthorRole: principal.Role,
		Body:       body,
	}
	if err := s.messages.Create(ctx, message); err != nil {
		return nil, apperrors.NewStoreFailure(err)
	}

	s.publish(ctx, events.EventTicketMessageAdded, ticketID, principal, events.TicketMessageAddedPayload{
		MessageID:   message.ID,
		BodyPreview: preview(body),
	})
	return message, nil
}

// ListMessages returns the ticket's thread, gated like any single-ticket read.
func (s *TicketService) ListMessages(ctx context.Context, principal *auth.Principal, ticketID string) ([]domain.TicketMessage, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireTicketAccess(principal, ticket); err != nil {
		return nil, err
	}

	messages, err := s.messages.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NewStoreFailure(err)
	}
	return messages, nil
}

// ListAttachments returns attachment metadata for a ticket, gated like any
// single-ticket read.
func (s *TicketService) ListAttachments(ctx context.Context, principal *auth.Principal, ticketID string) ([]domain.Attachment, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireTicketAccess(principal, ticket); err != nil {
		return nil, err
	}

	attachments, err := s.attachments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NewStoreFailure(err)
	}
	return attachments, nil
}

func (s *TicketService) loadTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket")
		}
		return nil, apperrors.NewStoreFailure(err)
	}
	return ticket, nil
}

func (s *TicketService) publish(ctx context.Context, eventType events.EventType, ticketID string, principal *auth.Principal, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Actor:     events.Actor{ID: principal.ID, Role: principal.Role},
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

func preview(body string) string {
	const max = 80
	if len(body) <= max {
		return body
	}
	// Back off to a rune boundary so the cut never splits a multi-byte
	// character.
	cut := max
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut]
}
