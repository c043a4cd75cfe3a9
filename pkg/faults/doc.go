// Package faults defines the error taxonomy shared by the extraction and
// comparison layers.
//
// A Fault carries a category (what went wrong), a severity (how bad it is),
// a context record (where it happened, which attempt), optional recovery
// suggestions, and a generated code stable enough to grep logs for. Faults
// wrap an underlying error and work with errors.Is / errors.As.
//
// Retry policy hangs off the category: Connection, Timeout and Protocol
// faults are worth retrying, everything else is not. Unclassified errors are
// only retried when they look like transport-level failures; the default for
// unknown errors is don't retry.
//
// The Reporter is a bounded ring of recent faults for later summary. It is
// constructed explicitly and injected; nothing in this package keeps global
// state.
package faults
