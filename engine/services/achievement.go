package services

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/carrersbcn/giuros-engine/engine/database/models"
	"github.com/carrersbcn/giuros-engine/engine/database/repositories"
	"github.com/carrersbcn/giuros-engine/engine/utils"
)

// Category pattern kinds
const (
	CategoryKindCount   = "count"
	CategoryKindStreak  = "streak"
	CategoryKindPerfect = "perfect"
	CategoryKindQuick   = "quick"
)

// CategoryMatcher is one compiled entry of the street pattern table.
type CategoryMatcher struct {
	Name    string
	Pattern *regexp.Regexp
	Kind    string
}

// AchievementConfig carries the session evaluation thresholds and the
// compiled pattern table.
type AchievementConfig struct {
	NightStartHour int
	NightEndHour   int
	QuickGuessTime float64
	FastLossTime   float64
	WrongStreakMin int
	Categories     []CategoryMatcher
}

// CategoryPatternDef is one uncompiled pattern table row as configured.
type CategoryPatternDef struct {
	Name    string
	Pattern string
	Kind    string
}

// CompileCategories builds matchers from the configured pattern table.
// Patterns are case-insensitive; a pattern that fails to compile is skipped
// with a log line rather than taking the engine down.
func CompileCategories(raw []CategoryPatternDef) []CategoryMatcher {
	matchers := make([]CategoryMatcher, 0, len(raw))
	for _, r := range raw {
		re, err := regexp.Compile("(?i)" + r.Pattern)
		if err != nil {
			slog.Error("Invalid category pattern, skipping",
				slog.String("type", "error"),
				slog.String("category", r.Name),
				slog.Any("error", err))
			continue
		}
		matchers = append(matchers, CategoryMatcher{Name: r.Name, Pattern: re, Kind: r.Kind})
	}
	return matchers
}

// AchievementService scans finished sessions into a StatsDelta and hands the
// whole delta to the badge stats repository as one merge. Nothing here reads
// current stats before writing; all folding happens server-side.
type AchievementService struct {
	statsRepo repositories.BadgeStatsRepository
	cfg       AchievementConfig
}

func NewAchievementService(statsRepo repositories.BadgeStatsRepository, cfg AchievementConfig) *AchievementService {
	return &AchievementService{statsRepo: statsRepo, cfg: cfg}
}

// Evaluate computes the session's delta in memory. Category counters hold
// this session's result only; the merge folds them against the stored best.
func (s *AchievementService) Evaluate(session *Session) *models.StatsDelta {
	delta := &models.StatsDelta{
		Score:      session.Score,
		Completed:  session.Completed,
		PlayDate:   utils.DateKey(session.PlayedAt),
		Categories: make(map[string]int),
	}

	// Wrong streaks only count once they reach the badge threshold
	if session.WrongStreak >= s.cfg.WrongStreakMin {
		delta.WrongStreak = session.WrongStreak
	}

	// The night window is wall-clock: the hour in the session's own zone
	hour := session.PlayedAt.Hour()
	if hour >= s.cfg.NightStartHour && hour < s.cfg.NightEndHour {
		delta.NightPlay = true
	}

	if session.DurationSeconds > 0 &&
		session.DurationSeconds < s.cfg.FastLossTime &&
		session.CorrectCount() == 0 {
		delta.FastLoss = true
	}

	for _, m := range s.cfg.Categories {
		switch m.Kind {
		case CategoryKindStreak:
			delta.Categories[m.Name] = bestStreak(session.Guesses, m.Pattern)
		case CategoryKindCount:
			delta.Categories[m.Name] = countCorrect(session.Guesses, m.Pattern, false)
		case CategoryKindPerfect:
			delta.Categories[m.Name] = countCorrect(session.Guesses, m.Pattern, true)
		case CategoryKindQuick:
			if hasQuickGuess(session.Guesses, m.Pattern, s.cfg.QuickGuessTime) {
				delta.RamblasQuick = true
			}
		}
	}

	return delta
}

// Record evaluates the session and merges the delta. yesterday anchors the
// consecutive-day fold in the merge statement.
func (s *AchievementService) Record(ctx context.Context, session *Session) (*models.StatsDelta, error) {
	delta := s.Evaluate(session)
	yesterday := utils.YesterdayKey(session.PlayedAt)

	if err := s.statsRepo.MergeSession(ctx, session.PlayerID, delta, yesterday); err != nil {
		return nil, err
	}

	return delta, nil
}

// Stats returns the player's current badge stats row.
func (s *AchievementService) Stats(ctx context.Context, playerID string) (*models.BadgeStats, error) {
	return s.statsRepo.Get(ctx, playerID)
}

// bestStreak finds the longest run of consecutive correct guesses on
// matching streets. A wrong answer on a matching street breaks the run;
// non-matching streets do not.
func bestStreak(guesses []Guess, pattern *regexp.Regexp) int {
	best, cur := 0, 0
	for _, g := range guesses {
		if !pattern.MatchString(g.StreetName) {
			continue
		}
		if g.Correct {
			cur++
			if cur > best {
				best = cur
			}
		} else {
			cur = 0
		}
	}
	return best
}

func countCorrect(guesses []Guess, pattern *regexp.Regexp, firstAttemptOnly bool) int {
	n := 0
	for _, g := range guesses {
		if !g.Correct || !pattern.MatchString(g.StreetName) {
			continue
		}
		if firstAttemptOnly && g.Attempts != 1 {
			continue
		}
		n++
	}
	return n
}

func hasQuickGuess(guesses []Guess, pattern *regexp.Regexp, threshold float64) bool {
	for _, g := range guesses {
		if g.Correct && g.Time < threshold && pattern.MatchString(g.StreetName) {
			return true
		}
	}
	return false
}
