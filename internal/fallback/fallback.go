// Package fallback implements ordered first-success-wins chains, the
// shared shape behind author/image/date extraction and provider
// selection.
package fallback

// Step produces a candidate value and reports whether it is usable.
type Step[T any] func() (T, bool)

// First runs steps in order and returns the first usable value. A later
// step is only evaluated when every earlier step yielded nothing.
func First[T any](steps ...Step[T]) (T, bool) {
	for _, step := range steps {
		if step == nil {
			continue
		}
		if v, ok := step(); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// FirstString is First specialized to strings, treating empty as unusable.
func FirstString(steps ...func() string) string {
	for _, step := range steps {
		if step == nil {
			continue
		}
		if v := step(); v != "" {
			return v
		}
	}
	return ""
}
