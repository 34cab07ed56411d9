package engine

import "errors"

var (
	// ErrHostnameRequired rejects a create without a hostname
	ErrHostnameRequired = errors.New("hostname is required")

	// ErrNotFound means neither the local store nor the authority knows
	// the requested hostname
	ErrNotFound = errors.New("certificate not found")
)
