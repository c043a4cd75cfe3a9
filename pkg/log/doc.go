// Package log provides structured protocol capture for hook sessions.
//
// This package defines the Logger interface and Event types for recording
// protocol-level events at multiple layers (transport, session, hook).
// It is separate from operational logging (slog) - protocol capture provides
// a complete machine-readable event trace for debugging and analysis.
//
// # Basic Usage
//
// Applications configure capture by providing a Logger implementation:
//
//	// For development: log to console via slog
//	opts.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	opts.ProtocolLogger, _ = log.NewFileLogger("audit.tlog")
//
//	// Both: use MultiLogger
//	opts.ProtocolLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    log.NewFileLogger("audit.tlog"),
//	)
//
// # Event Types
//
// Events are captured at multiple layers:
//   - Transport: Raw frame bytes (FrameEvent)
//   - Session: Decoded RPCs (RPCEvent)
//   - Hook: State changes (StateEvent)
//
// Errors at any layer use ErrorEvent.
//
// # File Format
//
// Log files use CBOR encoding with .tlog extension. The tr181-log CLI tool
// provides viewing, filtering, and per-operation statistics.
package log
