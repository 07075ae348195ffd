package entities

import "fmt"

// ManifestParseError reports a missing or malformed manifest, lock, or pin
// file. It is fatal for the repository run in which it occurs.
type ManifestParseError struct {
	File   string
	Reason string
}

func (e *ManifestParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %s", e.File, e.Reason)
}

// ResolverError carries the raw diagnostic output of a failed resolver
// invocation. The recovery flows consume it to build issue bodies; it is
// never retried more than the single fallback defined per call site.
type ResolverError struct {
	Command string
	Stdout  string
	Stderr  string
	Err     error
}

func (e *ResolverError) Error() string {
	return fmt.Sprintf("resolver command %q failed: %v", e.Command, e.Err)
}

func (e *ResolverError) Unwrap() error {
	return e.Err
}

// InternalError marks a violated invariant, such as two open changes sharing
// one branch or a declared package missing from the lock. It is always fatal
// and never auto-recovered.
type InternalError struct {
	Reason string
}

func (e *InternalError) Error() string {
	return "internal error: " + e.Reason
}

// TransportError wraps a hosting-API or git-transport failure. Inside the
// per-dependency loop it only fails that dependency; outside the loop (clone,
// initial listing) it fails the whole repository run.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
