package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// Handler holds metadata about a registered job handler.
type Handler struct {
	Fn         reflect.Value
	ArgsType   reflect.Type
	HasContext bool
}

// NewHandler creates a Handler from a function.
// Accepted signatures:
//
//	func(ctx context.Context, args T) error
//	func(ctx context.Context) error
//	func(args T) error
func NewHandler(fn any) (*Handler, error) {
	if fn == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}

	fnVal := reflect.ValueOf(fn)

	// Check for typed nil (e.g., var fn func() = nil)
	if !fnVal.IsValid() || (fnVal.Kind() == reflect.Func && fnVal.IsNil()) {
		return nil, fmt.Errorf("handler function cannot be nil")
	}

	fnType := fnVal.Type()

	if fnType.Kind() != reflect.Func {
		return nil, fmt.Errorf("handler must be a function")
	}

	handler := &Handler{Fn: fnVal}

	numIn := fnType.NumIn()
	if numIn < 1 || numIn > 2 {
		return nil, fmt.Errorf("handler must have 1-2 arguments")
	}

	argIdx := 0
	if fnType.In(0).Implements(contextType) {
		handler.HasContext = true
		argIdx = 1
	}

	if argIdx < numIn {
		handler.ArgsType = fnType.In(argIdx)
	} else if !handler.HasContext {
		return nil, fmt.Errorf("handler must take a context or an argument")
	}
	if numIn == 2 && !handler.HasContext {
		return nil, fmt.Errorf("handler's first argument must be context.Context")
	}

	if fnType.NumOut() != 1 || !fnType.Out(0).Implements(errorType) {
		return nil, fmt.Errorf("handler must return error")
	}

	return handler, nil
}

// Execute runs the handler with the given context and JSON arguments.
// Empty or null arguments leave the argument at its zero value.
func (h *Handler) Execute(ctx context.Context, argsJSON []byte) error {
	if !h.Fn.IsValid() || h.Fn.IsNil() {
		return fmt.Errorf("handler function is nil or invalid")
	}

	var args []reflect.Value

	if h.HasContext {
		args = append(args, reflect.ValueOf(ctx))
	}

	if h.ArgsType != nil {
		argVal := reflect.New(h.ArgsType)
		if len(argsJSON) > 0 && string(argsJSON) != "null" {
			if err := json.Unmarshal(argsJSON, argVal.Interface()); err != nil {
				return fmt.Errorf("failed to unmarshal args: %w", err)
			}
		}
		args = append(args, argVal.Elem())
	}

	results := h.Fn.Call(args)
	if !results[0].IsNil() {
		return results[0].Interface().(error)
	}
	return nil
}
