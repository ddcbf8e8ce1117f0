package schedule

import "time"

// Session is a conference session grouping one or more presentations.
type Session struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	StartTime     time.Time `json:"start_time"`
	LengthMinutes int       `json:"length_minutes"`
	Room          string    `json:"room"`
	CreatedAt     time.Time `json:"created_at"`
}

// ImportResult summarises a schedule import.
type ImportResult struct {
	Rows                 int      `json:"rows"`
	SessionsUpserted     int      `json:"sessions_upserted"`
	PresentationsCreated int      `json:"presentations_created"`
	SessionIDs           []string `json:"session_ids"`
}
