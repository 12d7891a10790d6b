package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/edusupport/helpdesk-service/internal/domain"
)

// In-memory repository implementations, used when no Postgres DSN is
// configured (local development) and by the test suites. They mirror the
// SQL semantics: pgx.ErrNoRows on missing rows, creation-time ordering,
// atomic session replacement under a single lock.

type memoryUserRepository struct {
	mu      sync.RWMutex
	byID    map[string]domain.User
	byEmail map[string]string
}

// NewMemoryUserRepository returns an in-memory UserRepository.
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{
		byID:    make(map[string]domain.User),
		byEmail: make(map[string]string),
	}
}

func (r *memoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.byID[user.ID] = *user
	r.byEmail[user.Email] = user.ID
	return nil
}

func (r *memoryUserRepository) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.byID[user.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	delete(r.byEmail, prev.Email)
	user.UpdatedAt = time.Now()
	r.byID[user.ID] = *user
	r.byEmail[user.Email] = user.ID
	return nil
}

func (r *memoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r *memoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	user := r.byID[id]
	return &user, nil
}

type memoryRefreshSessionRepository struct {
	mu     sync.Mutex
	byUser map[string]domain.RefreshSession
}

// NewMemoryRefreshSessionRepository returns an in-memory RefreshSessionRepository.
func NewMemoryRefreshSessionRepository() RefreshSessionRepository {
	return &memoryRefreshSessionRepository{byUser: make(map[string]domain.RefreshSession)}
}

func (r *memoryRefreshSessionRepository) Replace(_ context.Context, session *domain.RefreshSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session.ID = uuid.NewString()
	// Keyed by user: the upsert is a plain map write, last write wins.
	r.byUser[session.UserID] = *session
	return nil
}

func (r *memoryRefreshSessionRepository) GetByTokenHash(_ context.Context, tokenHash string) (*domain.RefreshSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, session := range r.byUser {
		if session.TokenHash == tokenHash {
			found := session
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memoryRefreshSessionRepository) DeleteByTokenHash(_ context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for userID, session := range r.byUser {
		if session.TokenHash == tokenHash {
			delete(r.byUser, userID)
			return nil
		}
	}
	return nil
}

func (r *memoryRefreshSessionRepository) DeleteByUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byUser, userID)
	return nil
}

type memoryTicketRepository struct {
	mu          sync.RWMutex
	tickets     map[string]domain.Ticket
	attachments *memoryAttachmentRepository
	users       UserRepository
}

// NewMemoryTicketRepository returns an in-memory TicketRepository. The user
// repository supplies requester names for listings; the attachment
// repository receives rows created inside ticket creation.
func NewMemoryTicketRepository(users UserRepository, attachments AttachmentRepository) TicketRepository {
	mem, _ := attachments.(*memoryAttachmentRepository)
	return &memoryTicketRepository{
		tickets:     make(map[string]domain.Ticket),
		attachments: mem,
		users:       users,
	}
}

func (r *memoryTicketRepository) Create(ctx context.Context, ticket *domain.Ticket, attachment *domain.Attachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	if user, err := r.users.GetByID(ctx, ticket.RequesterID); err == nil {
		ticket.RequesterName = user.Name
	}
	r.tickets[ticket.ID] = *ticket

	if attachment != nil && r.attachments != nil {
		attachment.ID = uuid.NewString()
		attachment.TicketID = ticket.ID
		attachment.CreatedAt = now
		r.attachments.add(*attachment)
	}
	return nil
}

func (r *memoryTicketRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &ticket, nil
}

func (r *memoryTicketRepository) List(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if filter.RequesterID != nil && ticket.RequesterID != *filter.RequesterID {
			continue
		}
		if filter.Status != nil && ticket.Status != *filter.Status {
			continue
		}
		if filter.Category != nil && ticket.Category != *filter.Category {
			continue
		}
		if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
			needle := strings.ToLower(strings.TrimSpace(*filter.Search))
			if !strings.Contains(strings.ToLower(ticket.Title), needle) &&
				!strings.Contains(strings.ToLower(ticket.Description), needle) {
				continue
			}
		}
		result = append(result, ticket)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *memoryTicketRepository) UpdateTriage(_ context.Context, id string, status domain.TicketStatus, priority domain.TicketPriority, supportID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	ticket.Status = status
	ticket.Priority = priority
	ticket.SupportID = &supportID
	ticket.UpdatedAt = time.Now()
	r.tickets[id] = ticket
	return nil
}

type memoryTicketMessageRepository struct {
	mu       sync.RWMutex
	byTicket map[string][]domain.TicketMessage
	users    UserRepository
}

// NewMemoryTicketMessageRepository returns an in-memory TicketMessageRepository.
func NewMemoryTicketMessageRepository(users UserRepository) TicketMessageRepository {
	return &memoryTicketMessageRepository{
		byTicket: make(map[string][]domain.TicketMessage),
		users:    users,
	}
}

func (r *memoryTicketMessageRepository) Create(ctx context.Context, message *domain.TicketMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	message.ID = uuid.NewString()
	message.CreatedAt = time.Now()
	if user, err := r.users.GetByID(ctx, message.AuthorID); err == nil {
		message.AuthorName = user.Name
		message.AuthorRole = user.Role
	}
	r.byTicket[message.TicketID] = append(r.byTicket[message.TicketID], *message)
	return nil
}

func (r *memoryTicketMessageRepository) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	messages := r.byTicket[ticketID]
	result := make([]domain.TicketMessage, len(messages))
	copy(result, messages)
	return result, nil
}

type memoryAttachmentRepository struct {
	mu       sync.RWMutex
	byTicket map[string][]domain.Attachment
}

// NewMemoryAttachmentRepository returns an in-memory AttachmentRepository.
func NewMemoryAttachmentRepository() AttachmentRepository {
	return &memoryAttachmentRepository{byTicket: make(map[string][]domain.Attachment)}
}

func (r *memoryAttachmentRepository) add(att domain.Attachment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byTicket[att.TicketID] = append(r.byTicket[att.TicketID], att)
}

func (r *memoryAttachmentRepository) ListByTicket(_ context.Context, ticketID string) ([]domain.Attachment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	attachments := r.byTicket[ticketID]
	result := make([]domain.Attachment, len(attachments))
	copy(result, attachments)
	return result, nil
}
