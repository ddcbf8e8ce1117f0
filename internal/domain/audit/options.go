package audit

// ListOptions provides filtering options for listing audit entries.
type ListOptions struct {
	PresentationID *string
	Action         *Action
	Limit          int
	Offset         int
}
