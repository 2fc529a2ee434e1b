package inmemdb

import (
	"sync"

	"github.com/trezcool/mentora/core/duel"
	"github.com/trezcool/mentora/core/student"
)

type answerKey struct {
	duelID    string
	studentID string
	index     int
}

// DB keeps every table behind a single lock so that multi-table writes are atomic.
type DB struct {
	mu        sync.RWMutex
	requests  map[string]duel.Request
	duels     map[string]*duel.Duel
	answers   map[answerKey]duel.Answer
	stats     map[string]duel.Stats
	profiles  map[string]student.Profile
	questions []questionRow
}

type questionRow struct {
	subject string
	q       duel.Question
}

func Open() (*DB, error) {
	db := &DB{
		requests: make(map[string]duel.Request),
		duels:    make(map[string]*duel.Duel),
		answers:  make(map[answerKey]duel.Answer),
		stats:    make(map[string]duel.Stats),
		profiles: make(map[string]student.Profile),
	}
	return db, nil
}

// Reset empties every table (tests).
func (db *DB) Reset() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.requests = make(map[string]duel.Request)
	db.duels = make(map[string]*duel.Duel)
	db.answers = make(map[answerKey]duel.Answer)
	db.stats = make(map[string]duel.Stats)
	db.profiles = make(map[string]student.Profile)
	db.questions = nil
}
