package migration

import "time"

// MongoUser is the legacy user profile document. The legacy store keyed
// everything by username, so Username doubles as the player id here too.
type MongoUser struct {
	Username            string   `bson:"username"`
	UID                 string   `bson:"uid"`
	Email               string   `bson:"email,omitempty"`
	Streak              int      `bson:"streak"`
	TotalScore          int      `bson:"totalScore"`
	LastPlayDate        string   `bson:"lastPlayDate"`
	JoinedAt            int64    `bson:"joinedAt"` // unix millis
	Giuros              *int64   `bson:"giuros,omitempty"`
	Referrer            string   `bson:"referrer,omitempty"`
	PurchasedCosmetics  []string `bson:"purchasedCosmetics,omitempty"`
	Friends             []string `bson:"friends,omitempty"`
	MigrationStatus     string   `bson:"migrationStatus,omitempty"`
	Team                string   `bson:"team,omitempty"`
}

// MongoScore is one legacy game history document.
type MongoScore struct {
	Username       string      `bson:"username"`
	Score          int         `bson:"score"`
	AvgTime        interface{} `bson:"avgTime"` // string in old docs, number in newer ones
	Timestamp      int64       `bson:"timestamp"` // unix millis
	Date           string      `bson:"date"`
	Incomplete     bool        `bson:"incomplete,omitempty"`
	IsBonus        bool        `bson:"isBonus,omitempty"`
	CorrectAnswers *int        `bson:"correctAnswers,omitempty"`
	QuestionCount  *int        `bson:"questionCount,omitempty"`
}

// TableStats tracks per-table migration counters.
type TableStats struct {
	Read     int
	Imported int
	Skipped  int
}

// MigrationStats is the run summary written to the migration report.
type MigrationStats struct {
	Tables    map[string]*TableStats
	StartTime time.Time
	EndTime   time.Time
}
