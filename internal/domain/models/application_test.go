// internal/domain/models/application_test.go
package models_test

import (
	"testing"
	"time"

	"github.com/taskforge/taskforge/internal/domain/models"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to models.ApplicationStatus
		want     bool
	}{
		{models.ApplicationPending, models.ApplicationAccepted, true},
		{models.ApplicationPending, models.ApplicationRejected, true},
		{models.ApplicationPending, models.ApplicationCancelled, true},
		{models.ApplicationPending, models.ApplicationSubmitted, false},
		{models.ApplicationPending, models.ApplicationCompleted, false},

		{models.ApplicationAccepted, models.ApplicationSubmitted, true},
		{models.ApplicationAccepted, models.ApplicationCancelled, true},
		{models.ApplicationAccepted, models.ApplicationRejected, false},
		{models.ApplicationAccepted, models.ApplicationPending, false},

		{models.ApplicationSubmitted, models.ApplicationCompleted, true},
		{models.ApplicationSubmitted, models.ApplicationNeedsRevision, true},
		{models.ApplicationSubmitted, models.ApplicationCancelled, false},

		{models.ApplicationNeedsRevision, models.ApplicationSubmitted, true},
		{models.ApplicationNeedsRevision, models.ApplicationCompleted, false},
		{models.ApplicationNeedsRevision, models.ApplicationCancelled, false},

		// terminals admit nothing
		{models.ApplicationCompleted, models.ApplicationSubmitted, false},
		{models.ApplicationRejected, models.ApplicationPending, false},
		{models.ApplicationCancelled, models.ApplicationAccepted, false},

		// unknown states admit nothing
		{"bogus", models.ApplicationPending, false},
		{models.ApplicationPending, "bogus", false},
	}
	for _, tc := range cases {
		if got := models.CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%q, %q) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestTerminal(t *testing.T) {
	terminals := []models.ApplicationStatus{
		models.ApplicationCompleted,
		models.ApplicationRejected,
		models.ApplicationCancelled,
	}
	for _, s := range terminals {
		if !s.Terminal() {
			t.Errorf("%q should be terminal", s)
		}
	}
	live := []models.ApplicationStatus{
		models.ApplicationPending,
		models.ApplicationAccepted,
		models.ApplicationSubmitted,
		models.ApplicationNeedsRevision,
	}
	for _, s := range live {
		if s.Terminal() {
			t.Errorf("%q should not be terminal", s)
		}
	}
	if models.ApplicationStatus("bogus").Terminal() {
		t.Error("unknown status should not report terminal")
	}
}

func TestCanSubmitFiles(t *testing.T) {
	if !models.ApplicationAccepted.CanSubmitFiles() {
		t.Error("accepted should allow file submission")
	}
	if !models.ApplicationNeedsRevision.CanSubmitFiles() {
		t.Error("needs_revision should allow file submission")
	}
	for _, s := range []models.ApplicationStatus{
		models.ApplicationPending,
		models.ApplicationSubmitted,
		models.ApplicationCompleted,
		models.ApplicationRejected,
		models.ApplicationCancelled,
	} {
		if s.CanSubmitFiles() {
			t.Errorf("%q should not allow file submission", s)
		}
	}
}

func TestCanWithdraw(t *testing.T) {
	if !models.ApplicationPending.CanWithdraw() {
		t.Error("pending should allow withdraw")
	}
	if !models.ApplicationAccepted.CanWithdraw() {
		t.Error("accepted should allow withdraw")
	}
	if models.ApplicationSubmitted.CanWithdraw() {
		t.Error("submitted should not allow withdraw")
	}
}

func TestDaysSinceApplication(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	app := models.TaskApplication{AppliedAt: now.AddDate(0, 0, -3)}
	if got := app.DaysSinceApplication(now); got != 3 {
		t.Errorf("DaysSinceApplication = %d, want 3", got)
	}
	// clock skew never yields a negative age
	app.AppliedAt = now.Add(time.Hour)
	if got := app.DaysSinceApplication(now); got != 0 {
		t.Errorf("DaysSinceApplication = %d, want 0", got)
	}
}
