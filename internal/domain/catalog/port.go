package catalog

// PreferenceStore port (persistence for the operator's selected store)
type PreferenceStore interface {
	SaveSelectedStore(operator string, s *Store) error
	SelectedStore(operator string) (*Store, error)
	ClearSelectedStore(operator string) error
}
