// Package logging provides structured logging utilities for inboxpilot.
//
// This package centralizes logging patterns to ensure consistent, structured
// logging throughout the codebase using the standard library's slog package.
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "triage.run")
//	logger.Info("cycle finished",
//	    logging.Status(logging.StatusSuccess))
//
// Sanitize sensitive data before logging:
//
//	logger.Info("message classified",
//	    logging.Domain(msg.Sender))
//
// # Security Considerations
//
//   - Sender addresses are hashed or reduced to their domain to prevent PII
//     leakage while still allowing correlation
//   - Tokens are never logged directly
package logging
