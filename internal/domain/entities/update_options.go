package entities

// UpdateOptions holds runtime options passed to managers.
type UpdateOptions struct {
	Labels []string // Applied to every change and issue the manager opens
}
