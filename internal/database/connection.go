package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// DB is the global database connection
var DB *sqlx.DB

// Connect establishes a connection to the database. DB_TYPE selects the
// driver: "sqlite" (default, file under data/) or "postgres" (DATABASE_URL).
func Connect() error {
	dbType := os.Getenv("DB_TYPE")
	if dbType == "" {
		dbType = "sqlite"
	}

	var db *sqlx.DB
	var err error

	if dbType == "postgres" {
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			return fmt.Errorf("DATABASE_URL environment variable is not set")
		}
		db, err = sqlx.Connect("postgres", dsn)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %v", err)
		}
	} else {
		dataDir := "data"
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %v", err)
		}
		dbPath := filepath.Join(dataDir, "lingbot.db")
		db, err = sqlx.Connect("sqlite3", dbPath)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %v", err)
		}
		if _, err = db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return fmt.Errorf("failed to enable foreign keys: %v", err)
		}
		// SQLite doesn't support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	DB = db

	return initializeSchema()
}

// Close closes the database connection
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}

// initializeSchema creates necessary tables if they don't exist
func initializeSchema() error {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if DB.DriverName() == "postgres" {
		serial = "BIGSERIAL PRIMARY KEY"
	}

	// Users table carries the engagement profile: streak continuity, daily
	// goal counters, freeze tokens and XP accumulators.
	_, err := DB.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id BIGINT PRIMARY KEY,
			username TEXT DEFAULT '',
			first_name TEXT DEFAULT '',
			last_name TEXT DEFAULT '',
			is_admin BOOLEAN DEFAULT false,
			level TEXT DEFAULT 'A1',
			streak_days INTEGER DEFAULT 0,
			best_streak INTEGER DEFAULT 0,
			streak_start_date TIMESTAMP,
			last_activity_date TIMESTAMP,
			daily_messages INTEGER DEFAULT 0,
			last_daily_reset TIMESTAMP,
			freeze_available INTEGER DEFAULT 1,
			freeze_used_at TIMESTAMP,
			freeze_week_start TIMESTAMP,
			last_milestone_day INTEGER DEFAULT 0,
			total_xp INTEGER DEFAULT 0,
			weekly_xp INTEGER DEFAULT 0,
			monthly_xp INTEGER DEFAULT 0,
			xp_week_start TIMESTAMP,
			xp_month_start TIMESTAMP,
			challenge_streak INTEGER DEFAULT 0,
			best_challenge_streak INTEGER DEFAULT 0,
			premium_until TIMESTAMP,
			reminder_enabled BOOLEAN DEFAULT true,
			grammar_enabled BOOLEAN DEFAULT true,
			grammar_frequency TEXT DEFAULT 'medium',
			grammar_counter INTEGER DEFAULT 0,
			last_grammar_at TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create users table: %v", err)
	}

	_, err = DB.Exec(`
		CREATE TABLE IF NOT EXISTS vocabulary (
			id ` + serial + `,
			user_id BIGINT NOT NULL,
			word_de TEXT NOT NULL,
			word_ru TEXT NOT NULL,
			example TEXT DEFAULT '',
			times_seen INTEGER DEFAULT 0,
			learned BOOLEAN DEFAULT false,
			interval REAL DEFAULT 0,
			ease_factor REAL DEFAULT 2.5,
			next_review TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id),
			UNIQUE(user_id, word_de)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create vocabulary table: %v", err)
	}

	// The unique (user_id, milestone_day) index is the idempotency backstop
	// for milestone grants.
	_, err = DB.Exec(`
		CREATE TABLE IF NOT EXISTS streak_rewards (
			id ` + serial + `,
			user_id BIGINT NOT NULL,
			milestone_day INTEGER NOT NULL,
			badge_id TEXT NOT NULL,
			xp_earned INTEGER DEFAULT 0,
			freeze_earned INTEGER DEFAULT 0,
			premium_days INTEGER DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id),
			UNIQUE(user_id, milestone_day)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create streak_rewards table: %v", err)
	}

	_, err = DB.Exec(`
		CREATE TABLE IF NOT EXISTS user_badges (
			id ` + serial + `,
			user_id BIGINT NOT NULL,
			badge_id TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id),
			UNIQUE(user_id, badge_id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create user_badges table: %v", err)
	}

	_, err = DB.Exec(`
		CREATE TABLE IF NOT EXISTS challenges (
			id TEXT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			date TIMESTAMP NOT NULL,
			format TEXT NOT NULL,
			topic TEXT DEFAULT '',
			difficulty TEXT DEFAULT 'A1',
			text TEXT NOT NULL,
			completed BOOLEAN DEFAULT false,
			score INTEGER DEFAULT 0,
			xp_earned INTEGER DEFAULT 0,
			completed_at TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create challenges table: %v", err)
	}

	_, err = DB.Exec(`
		CREATE TABLE IF NOT EXISTS quiz_results (
			id ` + serial + `,
			user_id BIGINT NOT NULL,
			quiz_type TEXT NOT NULL,
			total_words INTEGER DEFAULT 0,
			correct_words INTEGER DEFAULT 0,
			duration INTEGER DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create quiz_results table: %v", err)
	}

	_, err = DB.Exec(`
		CREATE TABLE IF NOT EXISTS grammar_exercises (
			id ` + serial + `,
			user_id BIGINT NOT NULL,
			topic TEXT NOT NULL,
			question TEXT NOT NULL,
			option_a TEXT NOT NULL,
			option_b TEXT NOT NULL,
			option_c TEXT NOT NULL,
			correct_answer TEXT NOT NULL,
			rule TEXT DEFAULT '',
			follow_up TEXT DEFAULT '',
			user_answer TEXT,
			is_correct BOOLEAN,
			answered_at TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create grammar_exercises table: %v", err)
	}

	_, err = DB.Exec(`
		CREATE TABLE IF NOT EXISTS placement_results (
			id ` + serial + `,
			user_id BIGINT NOT NULL,
			level_result TEXT NOT NULL,
			questions_total INTEGER DEFAULT 0,
			correct_total INTEGER DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create placement_results table: %v", err)
	}

	return nil
}
