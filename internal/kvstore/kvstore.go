// Package kvstore provides the durable key-value slots backing the
// annotation and location-record collections. One key holds one
// serialized collection; writers always replace the whole value.
//
// A slot has a single writer per process. Two processes sharing the
// same slot (the concurrent-tab case) race without coordination; that
// matches the original behavior and is accepted.
package kvstore

// Store is the interface all key-value backends must satisfy.
type Store interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(key string) (value string, ok bool, err error)
	// Set stores value under key, replacing any previous value.
	Set(key, value string) error
	// Delete removes key outright. Deleting an absent key is not an error.
	Delete(key string) error
	// Close releases backend resources.
	Close() error
}
