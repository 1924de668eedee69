package store

import "strings"

// CompositeID builds the "Collection/key" vertex id form.
func CompositeID(collection, key string) string {
	return collection + "/" + key
}

// SplitID splits a composite vertex id into collection and key.
func SplitID(id string) (collection, key string, err error) {
	idx := strings.Index(id, "/")
	if idx <= 0 || idx == len(id)-1 {
		return "", "", NewStoreError("SplitID", "", id, ErrInvalidID)
	}

	return id[:idx], id[idx+1:], nil
}

// KeyFromID returns the key part of a composite id, or the input unchanged
// when it carries no collection prefix.
func KeyFromID(id string) string {
	if idx := strings.Index(id, "/"); idx >= 0 {
		return id[idx+1:]
	}

	return id
}
