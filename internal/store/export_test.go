package store

// SetReferenceGenerator swaps the reference generator for the duration of a
// test and returns a function restoring the previous one.
func SetReferenceGenerator(fn func() string) (restore func()) {
    prev := newReference
    newReference = fn
    return func() { newReference = prev }
}
