package auth

import (
	"testing"

	"github.com/edusupport/helpdesk-service/internal/domain"
)

func TestCanAccessTicket(t *testing.T) {
	requester := &Principal{ID: "u1", Role: domain.RoleRequester}
	otherRequester := &Principal{ID: "u2", Role: domain.RoleRequester}
	support := &Principal{ID: "s1", Role: domain.RoleSupport}
	ticket := &domain.Ticket{ID: "t1", RequesterID: "u1"}

	cases := []struct {
		name      string
		principal *Principal
		ticket    *domain.Ticket
		want      bool
	}{
		{"owner may access", requester, ticket, true},
		{"other requester may not", otherRequester, ticket, false},
		{"support may access any", support, ticket, true},
		{"nil principal denied", nil, ticket, false},
		{"nil ticket denied", support, nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanAccessTicket(tc.principal, tc.ticket); got != tc.want {
				t.Fatalf("CanAccessTicket = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRequireTicketAccess(t *testing.T) {
	ticket := &domain.Ticket{ID: "t1", RequesterID: "u1"}

	if err := RequireTicketAccess(&Principal{ID: "u1", Role: domain.RoleRequester}, ticket); err != nil {
		t.Fatalf("owner denied: %v", err)
	}
	if err := RequireTicketAccess(&Principal{ID: "u2", Role: domain.RoleRequester}, ticket); err == nil {
		t.Fatal("non-owner requester allowed")
	}
}

func TestHasRole(t *testing.T) {
	support := &Principal{ID: "s1", Role: domain.RoleSupport}

	if !HasRole(support, domain.RoleSupport) {
		t.Fatal("support role not recognized")
	}
	if HasRole(support, domain.RoleRequester) {
		t.Fatal("support matched requester role")
	}
	if HasRole(nil, domain.RoleSupport) {
		t.Fatal("nil principal matched role")
	}
}

func TestRoleValid(t *testing.T) {
	if !domain.RoleRequester.Valid() || !domain.RoleSupport.Valid() {
		t.Fatal("known roles reported invalid")
	}
	if domain.Role("admin").Valid() {
		t.Fatal("unknown role reported valid")
	}
}
