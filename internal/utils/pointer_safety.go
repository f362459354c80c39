package utils

// Value dereferences v, returning the zero value of T for a nil pointer.
func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}

func Ptr[T any](v T) *T {
	return &v
}

// CloneSlice returns a copy of s that shares no backing array with it. nil stays nil.
func CloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}

// CloneValue returns a pointer to a copy of *v, or nil for a nil pointer.
func CloneValue[T any](v *T) *T {
	if v == nil {
		return nil
	}
	return Ptr(*v)
}
