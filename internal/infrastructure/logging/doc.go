// Package logging provides structured logging for Hearthside Core.
//
// It wraps log/slog with configuration-driven level, format and output
// selection, and stamps every record with service and version attributes.
package logging
