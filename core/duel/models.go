package duel

import (
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
)

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
// pending -> active | expired, active -> completed. Nothing leaves completed or expired.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusActive || next == StatusExpired
	case StatusActive:
		return next == StatusCompleted
	default:
		return false
	}
}

type (
	Question struct {
		ID            string   `json:"id"`
		Prompt        string   `json:"prompt"`
		Options       []string `json:"options"`
		CorrectAnswer string   `json:"correctAnswer,omitempty"`
		Explanation   string   `json:"explanation,omitempty"`
	}

	// Request is a challenge waiting for the opponent's answer.
	Request struct {
		ID            string    `json:"id" db:"id"`
		ChallengerID  string    `json:"challengerId" db:"challenger_id"`
		OpponentID    string    `json:"opponentId" db:"opponent_id"`
		Subject       string    `json:"subject,omitempty" db:"subject"`
		QuestionCount int       `json:"questionCount" db:"question_count"`
		CreatedAt     time.Time `json:"createdAt" db:"created_at"`
		ExpiresAt     time.Time `json:"expiresAt" db:"expires_at"`
	}

	Duel struct {
		ID              string     `json:"id"`
		ChallengerID    string     `json:"challengerId"`
		OpponentID      string     `json:"opponentId"`
		Subject         string     `json:"subject,omitempty"`
		Status          Status     `json:"status"`
		Questions       []Question `json:"questions"`
		ChallengerScore int        `json:"challengerScore"`
		OpponentScore   int        `json:"opponentScore"`
		WinnerID        *string    `json:"winnerId"`
		StartedAt       time.Time  `json:"startedAt"`
		CompletedAt     *time.Time `json:"completedAt"`
	}

	// Answer is keyed by (DuelID, StudentID, QuestionIndex).
	Answer struct {
		DuelID        string    `json:"duelId" db:"duel_id"`
		StudentID     string    `json:"studentId" db:"student_id"`
		QuestionIndex int       `json:"questionIndex" db:"question_index"`
		Answer        string    `json:"answer" db:"answer"`
		IsCorrect     bool      `json:"isCorrect" db:"is_correct"`
		TimeTakenMs   int64     `json:"timeTakenMs" db:"time_taken_ms"`
		PointsEarned  int       `json:"pointsEarned" db:"points_earned"`
		StreakBonus   int       `json:"streakBonus" db:"streak_bonus"`
		Streak        int       `json:"streak" db:"streak"`
		AnsweredAt    time.Time `json:"answeredAt" db:"answered_at"`
	}

	Stats struct {
		StudentID         string    `json:"studentId"`
		TotalDuels        int       `json:"totalDuels"`
		Wins              int       `json:"wins"`
		Losses            int       `json:"losses"`
		Draws             int       `json:"draws"`
		WinStreak         int       `json:"winStreak"`
		MaxWinStreak      int       `json:"maxWinStreak"`
		TotalPointsEarned int       `json:"totalPointsEarned"`
		UpdatedAt         time.Time `json:"updatedAt"`
	}

	AnswerResult struct {
		IsCorrect     bool   `json:"isCorrect"`
		CorrectAnswer string `json:"correctAnswer"`
		PointsEarned  int    `json:"pointsEarned"`
		StreakBonus   int    `json:"streakBonus"`
		NewStreak     int    `json:"newStreak"`
		Explanation   string `json:"explanation"`
		DuelStatus    Status `json:"duelStatus"`
	}
)

// StatusAt is pending until ExpiresAt, expired from then on.
func (r Request) StatusAt(now time.Time) Status {
	if now.Before(r.ExpiresAt) {
		return StatusPending
	}
	return StatusExpired
}

func (r Request) Involves(studentID string) bool {
	return r.ChallengerID == studentID || r.OpponentID == studentID
}

func (d Duel) IsParticipant(studentID string) bool {
	return d.ChallengerID == studentID || d.OpponentID == studentID
}

func (d Duel) IsChallenger(studentID string) bool {
	return d.ChallengerID == studentID
}

func (d Duel) LastIndex() int {
	return len(d.Questions) - 1
}

func (d Duel) ScoreOf(studentID string) int {
	if d.IsChallenger(studentID) {
		return d.ChallengerScore
	}
	return d.OpponentScore
}

// Public hides correct answers and explanations while the duel is being played.
func (d Duel) Public() Duel {
	if d.Status != StatusActive {
		return d
	}
	qs := make([]Question, len(d.Questions))
	for i, q := range d.Questions {
		q.CorrectAnswer = ""
		q.Explanation = ""
		qs[i] = q
	}
	d.Questions = qs
	return d
}

// Total is what the answer added to the player's score.
func (a Answer) Total() int {
	return a.PointsEarned + a.StreakBonus
}
