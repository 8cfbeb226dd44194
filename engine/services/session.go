package services

import "time"

// Guess is one question result inside a finished session.
type Guess struct {
	StreetName string
	District   string
	Correct    bool
	Time       float64 // seconds to answer
	Attempts   int
}

// Session is the payload a game client submits when a game ends. PlayerID is
// the player's handle; the engine trusts it only after the facade's
// authorization check.
type Session struct {
	PlayerID        string
	Score           int
	DurationSeconds float64
	PlayedAt        time.Time
	Platform        string
	Completed       bool // false when the player quit mid-game
	WrongStreak     int  // longest run of consecutive wrong answers
	StreakAtPlay    int
	IsBonus         bool
	Guesses         []Guess
}

// CorrectCount counts the correct guesses.
func (s *Session) CorrectCount() int {
	n := 0
	for _, g := range s.Guesses {
		if g.Correct {
			n++
		}
	}
	return n
}
