package entities

// UpdateResult records one successfully reconciled dependency update: the
// version transition and the number of the proposed change tracking it.
type UpdateResult struct {
	OldVersion   string
	NewVersion   string
	ChangeNumber int
}
