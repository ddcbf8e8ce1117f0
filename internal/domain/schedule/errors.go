package schedule

import "errors"

var (
	// ErrInvalidCSV indicates the uploaded schedule could not be parsed.
	ErrInvalidCSV = errors.New("invalid schedule csv")
	// ErrEmptySchedule indicates the CSV had a header but no rows.
	ErrEmptySchedule = errors.New("schedule has no rows")
)
