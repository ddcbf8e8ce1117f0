package presentation

import "time"

// FileProvider names where a presentation's file lives.
type FileProvider string

const (
	// ProviderOneDrive marks FileRef as a drive item ID.
	ProviderOneDrive FileProvider = "onedrive"
)

// Presentation is a scheduled talk in the conference programme.
type Presentation struct {
	ID               string        `json:"id"`
	Title            string        `json:"title"`
	Description      string        `json:"description,omitempty"`
	SpeakerName      string        `json:"speaker_name,omitempty"`
	SpeakerEmail     string        `json:"speaker_email,omitempty"`
	CoSpeakers       string        `json:"co_speakers,omitempty"`
	PresentationType string        `json:"presentation_type,omitempty"`
	AudienceLevel    string        `json:"audience_level,omitempty"`
	Tags             []string      `json:"tags,omitempty"`
	ScheduledTime    *time.Time    `json:"scheduled_time,omitempty"`
	LengthMinutes    int           `json:"length_minutes,omitempty"`
	Room             string        `json:"room,omitempty"`
	SessionID        *string       `json:"session_id,omitempty"`
	FileRef          *string       `json:"file_ref,omitempty"`
	FileProvider     *FileProvider `json:"file_provider,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// HasFile reports whether a file has been attached.
func (p *Presentation) HasFile() bool {
	return p.FileRef != nil && *p.FileRef != ""
}

// IsLegacyFile reports whether FileRef is a public URL rather than a drive item.
func (p *Presentation) IsLegacyFile() bool {
	return p.HasFile() && (p.FileProvider == nil || *p.FileProvider == "")
}
