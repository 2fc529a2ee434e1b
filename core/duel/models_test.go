package duel

import (
	"testing"
	"time"
)

func TestStatus_CanTransitionTo(t *testing.T) {
	all := []Status{StatusPending, StatusActive, StatusCompleted, StatusExpired}
	allowed := map[Status]map[Status]bool{
		StatusPending: {StatusActive: true, StatusExpired: true},
		StatusActive:  {StatusCompleted: true},
	}
	for _, from := range all {
		for _, to := range all {
			want := allowed[from][to]
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("%s.CanTransitionTo(%s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestRequest_StatusAt(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	req := Request{CreatedAt: created, ExpiresAt: created.Add(30 * time.Second)}

	tests := []struct {
		name string
		at   time.Time
		want Status
	}{
		{"just created", created, StatusPending},
		{"29s later", created.Add(29 * time.Second), StatusPending},
		{"at expiry", created.Add(30 * time.Second), StatusExpired},
		{"long after", created.Add(time.Hour), StatusExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := req.StatusAt(tt.at); got != tt.want {
				t.Errorf("StatusAt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDuel_Public(t *testing.T) {
	d := Duel{
		Status:    StatusActive,
		Questions: []Question{{ID: "q1", Prompt: "2+2?", Options: []string{"3", "4"}, CorrectAnswer: "4", Explanation: "math"}},
	}
	pub := d.Public()
	if pub.Questions[0].CorrectAnswer != "" || pub.Questions[0].Explanation != "" {
		t.Errorf("Public() leaked the answer of an active duel: %+v", pub.Questions[0])
	}
	if d.Questions[0].CorrectAnswer != "4" {
		t.Error("Public() modified the original duel")
	}

	d.Status = StatusCompleted
	if got := d.Public().Questions[0].CorrectAnswer; got != "4" {
		t.Errorf("Public() of a completed duel hid the answer, got %q", got)
	}
}
