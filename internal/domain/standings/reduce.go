package standings

import (
	"sort"
	"time"
)

// Entry is one finished game session as fetched from storage.
type Entry struct {
	PlayerID string
	Handle   string
	Score    int
	Time     float64 // average seconds per guess for the session
	PlayedAt time.Time
}

// Row is one ranked leaderboard line after reduction.
type Row struct {
	Rank     int
	PlayerID string
	Handle   string
	Score    int
	Time     float64
	Games    int
}

func (e Entry) dayKey() string {
	return e.PlayedAt.UTC().Format("2006-01-02")
}

// beats reports whether a is a strictly better result than b: higher score,
// or equal score with a lower time.
func beats(a, b Entry) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Time < b.Time
}

// DeduplicateBest reduces a day's sessions to one row per player, keeping
// each player's best session. Players who played several times rank by their
// best game, not their first or their sum.
func DeduplicateBest(entries []Entry) []Row {
	best := make(map[string]Entry)
	games := make(map[string]int)

	for _, e := range entries {
		games[e.PlayerID]++
		cur, ok := best[e.PlayerID]
		if !ok || beats(e, cur) {
			best[e.PlayerID] = e
		}
	}

	rows := make([]Row, 0, len(best))
	for id, e := range best {
		rows = append(rows, Row{
			PlayerID: id,
			Handle:   e.Handle,
			Score:    e.Score,
			Time:     e.Time,
			Games:    games[id],
		})
	}

	Sort(rows)
	return rows
}

// AggregateDaily reduces a multi-day window to one row per player: each day
// contributes the player's best session of that day, scores sum across days
// and times average across the contributing sessions. A player grinding one
// day many times scores no more than their single best that day.
func AggregateDaily(entries []Entry) []Row {
	type key struct {
		player string
		day    string
	}

	dayBest := make(map[key]Entry)
	for _, e := range entries {
		k := key{player: e.PlayerID, day: e.dayKey()}
		cur, ok := dayBest[k]
		if !ok || beats(e, cur) {
			dayBest[k] = e
		}
	}

	type acc struct {
		handle  string
		score   int
		timeSum float64
		games   int
	}

	totals := make(map[string]*acc)
	for k, e := range dayBest {
		a, ok := totals[k.player]
		if !ok {
			a = &acc{}
			totals[k.player] = a
		}
		a.handle = e.Handle
		a.score += e.Score
		a.timeSum += e.Time
		a.games++
	}

	rows := make([]Row, 0, len(totals))
	for id, a := range totals {
		rows = append(rows, Row{
			PlayerID: id,
			Handle:   a.handle,
			Score:    a.score,
			Time:     a.timeSum / float64(a.games),
			Games:    a.games,
		})
	}

	Sort(rows)
	return rows
}

// Sort orders rows by score descending, ties broken by lower time, then by
// player ID for a stable total order. Ranks are assigned 1-based.
func Sort(rows []Row) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		if rows[i].Time != rows[j].Time {
			return rows[i].Time < rows[j].Time
		}
		return rows[i].PlayerID < rows[j].PlayerID
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
}

// Top truncates rows to at most limit entries. A non-positive limit keeps
// everything.
func Top(rows []Row, limit int) []Row {
	if limit <= 0 || len(rows) <= limit {
		return rows
	}
	return rows[:limit]
}
