package handler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testArgs struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// ---------------------------------------------------------------------------
// NewHandler – rejection
// ---------------------------------------------------------------------------

func TestNewHandler_RejectsNil(t *testing.T) {
	_, err := NewHandler(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil")
}

func TestNewHandler_RejectsTypedNil(t *testing.T) {
	var fn func(ctx context.Context, args string) error
	_, err := NewHandler(fn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil")
}

func TestNewHandler_RejectsNonFunction(t *testing.T) {
	for _, v := range []any{"not a function", 42, testArgs{Name: "x"}} {
		_, err := NewHandler(v)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "function")
	}
}

func TestNewHandler_RejectsBadArity(t *testing.T) {
	_, err := NewHandler(func() error { return nil })
	assert.ErrorContains(t, err, "1-2 arguments")

	_, err = NewHandler(func(context.Context, string, int) error { return nil })
	assert.ErrorContains(t, err, "1-2 arguments")

	_, err = NewHandler(func(string, int) error { return nil })
	assert.ErrorContains(t, err, "context.Context")
}

func TestNewHandler_RejectsBadReturn(t *testing.T) {
	_, err := NewHandler(func(context.Context) {})
	assert.ErrorContains(t, err, "must return error")

	_, err = NewHandler(func(context.Context) string { return "" })
	assert.ErrorContains(t, err, "must return error")

	_, err = NewHandler(func(context.Context) (int, error) { return 0, nil })
	assert.ErrorContains(t, err, "must return error")
}

// ---------------------------------------------------------------------------
// NewHandler – accepted signatures
// ---------------------------------------------------------------------------

func TestNewHandler_ContextAndArgs(t *testing.T) {
	h, err := NewHandler(func(ctx context.Context, a testArgs) error { return nil })
	require.NoError(t, err)
	assert.True(t, h.HasContext)
	assert.Equal(t, "testArgs", h.ArgsType.Name())
}

func TestNewHandler_ContextOnly(t *testing.T) {
	h, err := NewHandler(func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	assert.True(t, h.HasContext)
	assert.Nil(t, h.ArgsType)
}

func TestNewHandler_ArgsOnly(t *testing.T) {
	h, err := NewHandler(func(a testArgs) error { return nil })
	require.NoError(t, err)
	assert.False(t, h.HasContext)
	assert.NotNil(t, h.ArgsType)
}

// ---------------------------------------------------------------------------
// Execute
// ---------------------------------------------------------------------------

func TestExecute_DecodesArgs(t *testing.T) {
	var got testArgs
	h, err := NewHandler(func(ctx context.Context, a testArgs) error {
		got = a
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, h.Execute(context.Background(), []byte(`{"name":"widget","value":3}`)))
	assert.Equal(t, testArgs{Name: "widget", Value: 3}, got)
}

func TestExecute_EmptyArgsUseZeroValue(t *testing.T) {
	calls := 0
	h, err := NewHandler(func(ctx context.Context, a testArgs) error {
		calls++
		assert.Equal(t, testArgs{}, a)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, h.Execute(context.Background(), nil))
	require.NoError(t, h.Execute(context.Background(), []byte("null")))
	assert.Equal(t, 2, calls)
}

func TestExecute_PassesContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "marker")

	h, err := NewHandler(func(ctx context.Context) error {
		assert.Equal(t, "marker", ctx.Value(key{}))
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, h.Execute(ctx, nil))
}

func TestExecute_ReturnsHandlerError(t *testing.T) {
	want := errors.New("work failed")
	h, err := NewHandler(func(ctx context.Context, n int) error { return want })
	require.NoError(t, err)

	assert.ErrorIs(t, h.Execute(context.Background(), []byte(`1`)), want)
}

func TestExecute_BadJSON(t *testing.T) {
	h, err := NewHandler(func(ctx context.Context, n int) error { return nil })
	require.NoError(t, err)

	err = h.Execute(context.Background(), []byte(`"not a number"`))
	assert.ErrorContains(t, err, "failed to unmarshal args")
}

func TestExecute_InvalidHandler(t *testing.T) {
	h := &Handler{}
	assert.ErrorContains(t, h.Execute(context.Background(), nil), "nil or invalid")
}
