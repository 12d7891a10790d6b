package service

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/edusupport/helpdesk-service/internal/auth"
	"github.com/edusupport/helpdesk-service/internal/domain"
	"github.com/edusupport/helpdesk-service/internal/events"
	"github.com/edusupport/helpdesk-service/internal/repository"
)

type ticketFixture struct {
	svc       *TicketService
	users     repository.UserRepository
	requester *auth.Principal
	other     *auth.Principal
	support   *auth.Principal
}

func newTicketFixture(t *testing.T) *ticketFixture {
	t.Helper()
	ctx := context.Background()

	users := repository.NewMemoryUserRepository()
	attachments := repository.NewMemoryAttachmentRepository()
	tickets := repository.NewMemoryTicketRepository(users, attachments)
	messages := repository.NewMemoryTicketMessageRepository(users)

	principals := make([]*auth.Principal, 0, 3)
	for _, seed := range []struct {
		name  string
		email string
		role  domain.Role
	}{
		{"Alice Martins", "alice@school.example", domain.RoleRequester},
		{"Bruno Costa", "bruno@school.example", domain.RoleRequester},
		{"Carla Dias", "carla@school.example", domain.RoleSupport},
	} {
		user := &domain.User{Name: seed.name, Email: seed.email, PasswordHash: "x", Role: seed.role}
		if err := users.Create(ctx, user); err != nil {
			t.Fatalf("Create user: %v", err)
		}
		principals = append(principals, &auth.Principal{
			ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role,
		})
	}

	svc := NewTicketService(TicketDependencies{
		Tickets:     tickets,
		Messages:    messages,
		Attachments: attachments,
		Dispatcher:  events.NewInMemoryDispatcher(nil),
	})
	return &ticketFixture{
		svc:       svc,
		users:     users,
		requester: principals[0],
		other:     principals[1],
		support:   principals[2],
	}
}

func (f *ticketFixture) create(t *testing.T, principal *auth.Principal, title string) *domain.Ticket {
	t.Helper()
	ticket, err := f.svc.Create(context.Background(), principal, CreateInput{
		Title:       title,
		Description: "description of " + title,
		Category:    "hardware",
	})
	if err != nil {
		t.Fatalf("Create ticket: %v", err)
	}
	return ticket
}

func TestCreateDefaultsToOpenLowPriority(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t, f.requester, "projector broken")

	if ticket.Status != domain.TicketStatusOpen {
		t.Fatalf("unexpected status: %s", ticket.Status)
	}
	if ticket.Priority != domain.TicketPriorityLow {
		t.Fatalf("unexpected priority: %s", ticket.Priority)
	}
	if ticket.RequesterID != f.requester.ID {
		t.Fatalf("ticket not owned by creator: %s", ticket.RequesterID)
	}
}

func TestCreateWithAttachment(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	ticket, err := f.svc.Create(ctx, f.requester, CreateInput{
		Title:       "lab pc dead",
		Description: "screen stays black",
		Category:    "hardware",
		Attachment: &AttachmentInput{
			FileName:  "photo.jpg",
			MimeType:  "image/jpeg",
			SizeBytes: 1024,
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	attachments, err := f.svc.ListAttachments(ctx, f.requester, ticket.ID)
	if err != nil {
		t.Fatalf("ListAttachments: %v", err)
	}
	if len(attachments) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(attachments))
	}
	if attachments[0].FileName != "photo.jpg" || attachments[0].StorageKey == "" {
		t.Fatalf("attachment metadata wrong: %+v", attachments[0])
	}
}

func TestListOwnershipIsolation(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	mine := map[string]bool{
		f.create(t, f.requester, "wifi down in lab").ID:     true,
		f.create(t, f.requester, "printer out of toner").ID: true,
	}
	f.create(t, f.other, "whiteboard remote lost")

	tickets, err := f.svc.List(ctx, f.requester, ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(tickets) != len(mine) {
		t.Fatalf("expected %d tickets, got %d", len(mine), len(tickets))
	}
	for _, ticket := range tickets {
		if !mine[ticket.ID] {
			t.Fatalf("foreign ticket leaked: %s", ticket.ID)
		}
	}
}

func TestListSupportSeesAll(t *testing.T) {
	f := newTicketFixture(t)
	f.create(t, f.requester, "wifi down in lab")
	f.create(t, f.other, "whiteboard remote lost")

	tickets, err := f.svc.List(context.Background(), f.support, ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(tickets) != 2 {
		t.Fatalf("expected 2 tickets, got %d", len(tickets))
	}
}

func TestListSearchIsCaseInsensitive(t *testing.T) {
	f := newTicketFixture(t)
	f.create(t, f.requester, "Projector Broken")
	f.create(t, f.requester, "wifi down")

	search := "PROJECTOR"
	tickets, err := f.svc.List(context.Background(), f.support, ListFilter{Search: &search})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(tickets) != 1 || tickets[0].Title != "Projector Broken" {
		t.Fatalf("search mismatch: %+v", tickets)
	}
}

func TestGetEnforcesOwnership(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.create(t, f.requester, "wifi down in lab")

	if _, err := f.svc.Get(ctx, f.requester, ticket.ID); err != nil {
		t.Fatalf("owner denied: %v", err)
	}
	if _, err := f.svc.Get(ctx, f.support, ticket.ID); err != nil {
		t.Fatalf("support denied: %v", err)
	}

	_, err := f.svc.Get(ctx, f.other, ticket.ID)
	if err == nil {
		t.Fatal("non-owner requester allowed")
	}
	if status := statusOf(t, err); status != 403 {
		t.Fatalf("expected 403, got %d", status)
	}

	_, err = f.svc.Get(ctx, f.support, "missing-id")
	if err == nil {
		t.Fatal("missing ticket returned")
	}
	if status := statusOf(t, err); status != 404 {
		t.Fatalf("expected 404, got %d", status)
	}
}

func TestUpdateTriageSupportOnly(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.create(t, f.requester, "wifi down in lab")

	_, err := f.svc.UpdateTriage(ctx, f.requester, ticket.ID, domain.TicketStatusResolved, domain.TicketPriorityHigh)
	if err == nil {
		t.Fatal("requester updated triage")
	}
	if status := statusOf(t, err); status != 403 {
		t.Fatalf("expected 403, got %d", status)
	}

	updated, err := f.svc.UpdateTriage(ctx, f.support, ticket.ID, domain.TicketStatusPending, domain.TicketPriorityHigh)
	if err != nil {
		t.Fatalf("UpdateTriage: %v", err)
	}
	if updated.Status != domain.TicketStatusPending || updated.Priority != domain.TicketPriorityHigh {
		t.Fatalf("triage not applied: %+v", updated)
	}
	if updated.SupportID == nil || *updated.SupportID != f.support.ID {
		t.Fatal("acting support agent not recorded")
	}
}

func TestUpdateTriageTransitionsUnconstrained(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.create(t, f.requester, "wifi down in lab")

	// No state machine: any status may follow any other, including going
	// back from resolved to open.
	sequence := []domain.TicketStatus{
		domain.TicketStatusResolved,
		domain.TicketStatusOpen,
		domain.TicketStatusPending,
		domain.TicketStatusResolved,
	}
	for _, status := range sequence {
		if _, err := f.svc.UpdateTriage(ctx, f.support, ticket.ID, status, domain.TicketPriorityMedium); err != nil {
			t.Fatalf("transition to %s rejected: %v", status, err)
		}
	}
}

func TestUpdateTriageRejectsUnknownValues(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t, f.requester, "wifi down in lab")

	if _, err := f.svc.UpdateTriage(context.Background(), f.support, ticket.ID, domain.TicketStatus("closed"), domain.TicketPriorityLow); err == nil {
		t.Fatal("unknown status accepted")
	}
}

func TestMessagePreviewKeepsRuneBoundaries(t *testing.T) {
	short := "still broken"
	if got := preview(short); got != short {
		t.Fatalf("short body altered: %q", got)
	}

	// 60 two-byte runes: 120 bytes, and byte 80 lands mid-rune.
	long := strings.Repeat("é", 60)
	got := preview(long)
	if len(got) > 80 {
		t.Fatalf("preview too long: %d bytes", len(got))
	}
	if !utf8.ValidString(got) {
		t.Fatalf("preview is not valid UTF-8: %q", got)
	}
}

func TestMessagesGatedByTicketAccess(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.create(t, f.requester, "wifi down in lab")

	if _, err := f.svc.AddMessage(ctx, f.requester, ticket.ID, "still broken"); err != nil {
		t.Fatalf("owner message rejected: %v", err)
	}
	if _, err := f.svc.AddMessage(ctx, f.support, ticket.ID, "on it"); err != nil {
		t.Fatalf("support message rejected: %v", err)
	}
	if _, err := f.svc.AddMessage(ctx, f.other, ticket.ID, "me too"); err == nil {
		t.Fatal("non-owner posted a message")
	}

	messages, err := f.svc.ListMessages(ctx, f.requester, ticket.ID)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].AuthorRole != domain.RoleRequester || messages[1].AuthorRole != domain.RoleSupport {
		t.Fatalf("author roles wrong: %+v", messages)
	}

	if _, err := f.svc.ListMessages(ctx, f.other, ticket.ID); err == nil {
		t.Fatal("non-owner listed messages")
	}
}
