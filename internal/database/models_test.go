package database

import (
	"testing"
	"time"
)

func TestMonthBounds(t *testing.T) {
	loc := time.FixedZone("UZT", 5*60*60)
	start, end := monthBounds(time.Date(2026, 12, 31, 23, 59, 0, 0, loc))

	if got := start.Format(dateLayout); got != "2026-12-01" {
		t.Errorf("start = %s, want 2026-12-01", got)
	}
	if got := end.Format(dateLayout); got != "2027-01-01" {
		t.Errorf("end = %s, want 2027-01-01", got)
	}
}

func TestExpenseResultRecipients(t *testing.T) {
	r := &ExpenseResult{
		Expense:           &Expense{CreatorID: 1},
		CreatorTelegramID: 100,
		Partners:          []Partner{{UserID: 2, TelegramID: 200}, {UserID: 3, TelegramID: 300}},
	}

	tg := r.AlertRecipients()
	if len(tg) != 3 || tg[0] != 200 || tg[2] != 100 {
		t.Errorf("AlertRecipients() = %v", tg)
	}
	ids := r.AlertUserIDs()
	if len(ids) != 3 || ids[2] != 1 {
		t.Errorf("AlertUserIDs() = %v", ids)
	}
}

func TestPartnerNotice(t *testing.T) {
	if got := PartnerNotice("Non", 12500.4, "Aziz"); got != "🆕 Non: 12,500 (Aziz)" {
		t.Errorf("PartnerNotice() = %q", got)
	}
}

func TestUnreadIDs(t *testing.T) {
	ns := []Notification{{ID: 1, IsRead: true}, {ID: 2}, {ID: 3}}
	ids := UnreadIDs(ns)
	if len(ids) != 2 || ids[0] != 2 || ids[1] != 3 {
		t.Errorf("UnreadIDs() = %v", ids)
	}
}

func TestNormalizeUsername(t *testing.T) {
	if got := NormalizeUsername("  MixedCase "); got != "mixedcase" {
		t.Errorf("NormalizeUsername() = %q", got)
	}
}
