// Package handler provides internal reflection-based handler execution.
//
// This package is internal and should not be imported directly.
// It provides:
//   - Handler: signature validation for registered job functions
//   - Decoding of stored JSON arguments into the handler's parameter type
package handler
