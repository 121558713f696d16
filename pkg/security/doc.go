// Package security provides input validation and output sanitization.
//
// This package includes:
//   - Job name and group reference validation
//   - Size limits for job arguments and stored error text
//   - Sanitization of exception summaries and tracebacks before storage
//   - Clamping of the retention window
package security
