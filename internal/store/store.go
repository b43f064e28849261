package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/google/uuid"
)

// Store persists plans, calendar events and the planner response cache
// in a single sqlite database.
type Store struct {
	DB *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// Create tables if not exist
	queries := []string{
		`CREATE TABLE IF NOT EXISTS plans (
			id TEXT PRIMARY KEY,
			user_id TEXT,
			goal TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			finished_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS plan_steps (
			plan_id TEXT,
			step_id INTEGER,
			action TEXT,
			tool TEXT,
			args TEXT,
			status TEXT DEFAULT 'pending',
			result TEXT,
			error TEXT,
			PRIMARY KEY (plan_id, step_id)
		);`,
		`CREATE TABLE IF NOT EXISTS plan_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			plan_id TEXT,
			time DATETIME DEFAULT CURRENT_TIMESTAMP,
			entry TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			title TEXT,
			description TEXT,
			date DATETIME,
			duration_minutes INTEGER,
			location TEXT,
			created_by TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS plan_cache (
			key TEXT PRIMARY KEY,
			value TEXT,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
	}
	for _, q := range queries {
		_, err = db.Exec(q)
		if err != nil {
			return nil, err
		}
	}

	return &Store{DB: db}, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

// CreatePlan inserts a new plan record with every step pending.
func (s *Store) CreatePlan(userID string, goal string, steps []Step) (*Plan, error) {
	plan := &Plan{
		ID:        uuid.NewString(),
		UserID:    userID,
		Goal:      goal,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.DB.Exec(
		`INSERT INTO plans (id, user_id, goal, created_at) VALUES (?, ?, ?, ?)`,
		plan.ID, plan.UserID, plan.Goal, plan.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert plan: %w", err)
	}

	for _, step := range steps {
		args, err := json.Marshal(step.Args)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal args for step %d: %w", step.ID, err)
		}
		_, err = s.DB.Exec(
			`INSERT INTO plan_steps (plan_id, step_id, action, tool, args, status) VALUES (?, ?, ?, ?, ?, ?)`,
			plan.ID, step.ID, step.Action, step.Tool, string(args), StepPending,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert step %d: %w", step.ID, err)
		}
		step.Status = StepPending
		plan.Steps = append(plan.Steps, step)
	}

	return plan, nil
}

// GetPlan loads a plan record with its steps and logs. Returns sql.ErrNoRows
// if the plan does not exist.
func (s *Store) GetPlan(planID string) (*Plan, error) {
	plan := &Plan{ID: planID}
	var finishedAt sql.NullTime

	row := s.DB.QueryRow(`SELECT user_id, goal, created_at, finished_at FROM plans WHERE id = ?`, planID)
	if err := row.Scan(&plan.UserID, &plan.Goal, &plan.CreatedAt, &finishedAt); err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		plan.FinishedAt = &finishedAt.Time
	}

	rows, err := s.DB.Query(
		`SELECT step_id, action, tool, args, status, result, error FROM plan_steps WHERE plan_id = ? ORDER BY step_id ASC`,
		planID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var step Step
		var args string
		var result, stepErr sql.NullString
		if err := rows.Scan(&step.ID, &step.Action, &step.Tool, &args, &step.Status, &result, &stepErr); err != nil {
			return nil, err
		}
		if args != "" {
			if err := json.Unmarshal([]byte(args), &step.Args); err != nil {
				return nil, fmt.Errorf("corrupt args for step %d: %w", step.ID, err)
			}
		}
		if result.Valid && result.String != "" {
			var res any
			if err := json.Unmarshal([]byte(result.String), &res); err == nil {
				step.Result = res
			}
		}
		if stepErr.Valid {
			step.Error = stepErr.String
		}
		plan.Steps = append(plan.Steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	logRows, err := s.DB.Query(`SELECT time, entry FROM plan_logs WHERE plan_id = ? ORDER BY id ASC`, planID)
	if err != nil {
		return nil, err
	}
	defer logRows.Close()

	for logRows.Next() {
		var le LogEntry
		var entry string
		if err := logRows.Scan(&le.Time, &entry); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(entry), &le.Entry); err != nil {
			le.Entry = map[string]any{"raw": entry}
		}
		plan.Logs = append(plan.Logs, le)
	}
	return plan, logRows.Err()
}

// UpdateStep patches a single step's status, result and error.
func (s *Store) UpdateStep(planID string, stepID int, patch StepPatch) error {
	var result string
	if patch.Result != nil {
		data, err := json.Marshal(patch.Result)
		if err != nil {
			return fmt.Errorf("failed to marshal step result: %w", err)
		}
		result = string(data)
	}

	res, err := s.DB.Exec(
		`UPDATE plan_steps SET status = ?, result = ?, error = ? WHERE plan_id = ? AND step_id = ?`,
		patch.Status, result, patch.Error, planID, stepID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("no step %d in plan %s", stepID, planID)
	}
	return err
}

// AppendLog adds one entry to a plan's audit trail. Entries are never
// mutated or removed.
func (s *Store) AppendLog(planID string, entry map[string]any) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal log entry: %w", err)
	}
	_, err = s.DB.Exec(
		`INSERT INTO plan_logs (plan_id, time, entry) VALUES (?, ?, ?)`,
		planID, time.Now().UTC(), string(data),
	)
	return err
}

// FinalizePlan stamps the plan's completion time.
func (s *Store) FinalizePlan(planID string) error {
	_, err := s.DB.Exec(`UPDATE plans SET finished_at = ? WHERE id = ?`, time.Now().UTC(), planID)
	return err
}

// SaveEvent stores a calendar event created by the calendar tool.
func (s *Store) SaveEvent(ev *Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	_, err := s.DB.Exec(
		`INSERT INTO events (id, title, description, date, duration_minutes, location, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Title, ev.Description, ev.Date, ev.DurationMinutes, ev.Location, ev.CreatedBy, ev.CreatedAt,
	)
	return err
}

// ListEvents returns a user's calendar events in chronological order.
func (s *Store) ListEvents(userID string) ([]Event, error) {
	rows, err := s.DB.Query(
		`SELECT id, title, description, date, duration_minutes, location, created_by, created_at
		 FROM events WHERE created_by = ? ORDER BY date ASC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.ID, &ev.Title, &ev.Description, &ev.Date, &ev.DurationMinutes, &ev.Location, &ev.CreatedBy, &ev.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Cache is the goal-hash keyed view over the plan_cache table.
type Cache struct {
	db *sql.DB
}

func (s *Store) Cache() *Cache {
	return &Cache{db: s.DB}
}

// Get returns the cached raw planner response for a goal hash.
func (c *Cache) Get(key string) (string, bool, error) {
	var value string
	err := c.db.QueryRow(`SELECT value FROM plan_cache WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set stores the raw planner response for a goal hash, replacing any
// previous value. Last write wins; entries never expire here.
func (c *Cache) Set(key string, value string) error {
	_, err := c.db.Exec(
		`INSERT INTO plan_cache (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	return err
}
