package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrItemNotFound indicates the requested catalog item does not exist
	ErrItemNotFound = errors.New("catalog item not found")

	// ErrServerOffline indicates the media server is unreachable
	ErrServerOffline = errors.New("media server is unreachable")

	// ErrAuthFailed indicates authentication failed
	ErrAuthFailed = errors.New("authentication token is invalid")

	// ErrNotFound is returned by KV stores when a key is absent
	ErrNotFound = errors.New("kv: key not found")

	// ErrUnknownNamespace is returned for namespaces a store does not know about
	ErrUnknownNamespace = errors.New("kv: unknown namespace")
)
