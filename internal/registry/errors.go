package registry

// moduleNotFoundError signals an unknown module slot id for 404 mapping.
type moduleNotFoundError struct{ id string }

func (e moduleNotFoundError) Error() string { return "module not found: " + e.id }

// IsModuleNotFound reports whether err indicates an unknown module id.
func IsModuleNotFound(err error) bool {
	_, ok := err.(moduleNotFoundError)
	return ok
}
