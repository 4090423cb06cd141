package assemble

import "fmt"

// DuplicateKeyError reports a lookup table whose key is not unique, which
// would multiply output rows if joined.
type DuplicateKeyError struct {
	Table string
	Key   string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key %q in %s", e.Key, e.Table)
}

// Retryable is true: the source is expected to be regenerated or repaired.
func (e *DuplicateKeyError) Retryable() bool {
	return true
}
