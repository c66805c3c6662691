//go:build !darwin

package permissions

// EnsureMicrophone is a no-op on non-macOS platforms.
func EnsureMicrophone() error {
	return nil
}

// CheckAccessibility always succeeds on non-macOS platforms.
func CheckAccessibility() bool {
	return true
}
