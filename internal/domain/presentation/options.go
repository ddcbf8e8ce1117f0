package presentation

// ListOptions filters presentation listings. Zero values match everything.
type ListOptions struct {
	Room             string
	PresentationType string
	SessionID        string
	HasFile          *bool
	Limit            int
	Offset           int
}
