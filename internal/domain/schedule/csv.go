package schedule

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Columns lists the CSV header the importer understands.
var Columns = []string{
	"session_name",
	"session_description",
	"session_start_time",
	"session_length_minutes",
	"session_room",
	"title",
	"description",
	"speaker_name",
	"speaker_email",
	"co_speakers",
	"presentation_type",
	"audience_level",
	"tags",
	"scheduled_time",
	"length_minutes",
	"room",
}

// Row is one parsed schedule line.
type Row map[string]string

// SessionKey identifies the session a row belongs to.
func (r Row) SessionKey() string {
	return r["session_name"] + "|" + r["session_start_time"] + "|" + r["session_room"]
}

// Tags splits the comma separated tags column.
func (r Row) Tags() []string {
	raw := strings.TrimSpace(r["tags"])
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

// ParseCSV reads a headed CSV. Unknown columns are ignored and blank lines
// are skipped.
func ParseCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: missing header", ErrInvalidCSV)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	if !contains(header, "title") {
		return nil, fmt.Errorf("%w: missing title column", ErrInvalidCSV)
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
		}
		if isBlank(record) {
			continue
		}
		row := make(Row, len(header))
		for i, name := range header {
			if i < len(record) {
				row[name] = strings.TrimSpace(record[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseTime accepts the timestamp forms found in schedule exports. An empty
// value yields nil.
func ParseTime(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognised time %q", value)
}

func parseMinutes(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid minutes %q", value)
	}
	return n, nil
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

func isBlank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
