//go:build !darwin

package clipboard

// SystemChangeCounter returns nil; only macOS exposes a change count.
func SystemChangeCounter() ChangeCounter {
	return nil
}
