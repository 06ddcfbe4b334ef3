package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-printshop-assistant/internal/domain"
	"github.com/tbourn/go-printshop-assistant/internal/repo"
)

func seedTickets(t *testing.T, svc *TicketService, statuses ...domain.TicketStatus) []string {
	t.Helper()
	ids := make([]string, 0, len(statuses))
	base := time.Now().UTC().Add(-time.Hour)
	for i, st := range statuses {
		tk := &domain.SupportTicket{
			ID:          "ticket-" + string(rune('a'+i)),
			Name:        "Customer",
			Subject:     "Subject",
			Description: "Message",
			Status:      st,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.CreateTicket(context.Background(), svc.DB, tk); err != nil {
			t.Fatalf("CreateTicket: %v", err)
		}
		ids = append(ids, tk.ID)
	}
	return ids
}

func TestTickets_ListPage(t *testing.T) {
	svc := NewTicketService(newTestDB(t))
	ids := seedTickets(t, svc, domain.TicketOpen, domain.TicketClosed, domain.TicketOpen)
	ctx := context.Background()

	all, total, err := svc.ListPage(ctx, "", 1, 10)
	if err != nil || total != 3 || len(all) != 3 {
		t.Fatalf("all: total=%d len=%d err=%v", total, len(all), err)
	}
	if all[0].ID != ids[2] {
		t.Fatalf("newest first: got %q", all[0].ID)
	}

	open, total, err := svc.ListPage(ctx, "open", 1, 1)
	if err != nil || total != 2 || len(open) != 1 || open[0].ID != ids[2] {
		t.Fatalf("open page: total=%d items=%+v err=%v", total, open, err)
	}

	none, total, err := svc.ListPage(ctx, "in_progress", 1, 10)
	if err != nil || total != 0 || none == nil || len(none) != 0 {
		t.Fatalf("empty filter should return an empty slice: %v %d %v", none, total, err)
	}

	if _, _, err := svc.ListPage(ctx, "lost", 1, 10); !errors.Is(err, ErrInvalidTicketStatus) {
		t.Fatalf("want ErrInvalidTicketStatus, got %v", err)
	}
}

func TestTickets_UpdateStatus(t *testing.T) {
	svc := NewTicketService(newTestDB(t))
	ids := seedTickets(t, svc, domain.TicketOpen)
	ctx := context.Background()

	tk, err := svc.UpdateStatus(ctx, ids[0], "in_progress")
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if tk.Status != domain.TicketInProgress {
		t.Fatalf("status=%q", tk.Status)
	}

	if _, err := svc.UpdateStatus(ctx, ids[0], "reopened"); !errors.Is(err, ErrInvalidTicketStatus) {
		t.Fatalf("want ErrInvalidTicketStatus, got %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, "missing", "closed"); !errors.Is(err, ErrTicketNotFound) {
		t.Fatalf("want ErrTicketNotFound, got %v", err)
	}
}

func TestTickets_Stats(t *testing.T) {
	svc := NewTicketService(newTestDB(t))
	seedTickets(t, svc, domain.TicketOpen, domain.TicketClosed)
	ctx := context.Background()

	n, at, err := svc.Stats(ctx, "closed")
	if err != nil || n != 1 || at == nil {
		t.Fatalf("closed stats: n=%d at=%v err=%v", n, at, err)
	}
	if _, _, err := svc.Stats(ctx, "bogus"); !errors.Is(err, ErrInvalidTicketStatus) {
		t.Fatalf("want ErrInvalidTicketStatus, got %v", err)
	}
}
