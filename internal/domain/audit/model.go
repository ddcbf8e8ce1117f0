package audit

import (
	"encoding/json"
	"time"
)

// Action identifies what happened to a presentation.
type Action string

const (
	ActionMoveTime        Action = "move_time"
	ActionUpdateDetails   Action = "update_details"
	ActionAttachFile      Action = "attach_file"
	ActionImportSchedule  Action = "import_schedule"
	ActionPresenterOpened Action = "presenter_opened"
)

// Entry is a single append-only audit log row.
type Entry struct {
	ID             int64           `json:"id"`
	Action         Action          `json:"action"`
	PresentationID *string         `json:"presentation_id,omitempty"`
	UserName       string          `json:"user_name"`
	Details        json.RawMessage `json:"details,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}
