package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterDuplicateCodePanics(t *testing.T) {
	require.Panics(t, func() {
		Register(2, "duplicate of unauthorized")
	})
}

func TestErrorIs(t *testing.T) {
	cases := map[string]struct {
		kind *Error
		err  error
		want bool
	}{
		"instance of the same root": {
			kind: ErrNotFound,
			err:  ErrNotFound,
			want: true,
		},
		"wrapped root": {
			kind: ErrNotFound,
			err:  Wrap(ErrNotFound, "gone"),
			want: true,
		},
		"deeply wrapped root": {
			kind: ErrNotFound,
			err:  Wrap(Wrap(ErrNotFound, "gone"), "lookup"),
			want: true,
		},
		"different root": {
			kind: ErrNotFound,
			err:  Wrap(ErrUnauthorized, "nope"),
			want: false,
		},
		"stdlib error": {
			kind: ErrNotFound,
			err:  fmt.Errorf("not registered"),
			want: false,
		},
		"nil error": {
			kind: ErrNotFound,
			err:  nil,
			want: false,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.kind.Is(tc.err))
		})
	}
}

func TestWrapNil(t *testing.T) {
	require.Nil(t, Wrap(nil, "description"))
}

func TestWrapPreservesMessageChain(t *testing.T) {
	err := Wrap(Wrap(ErrState, "inner"), "outer")
	require.EqualError(t, err, "outer: inner: invalid state")
}

func TestNewf(t *testing.T) {
	err := ErrInput.Newf("field %q", "Threshold")
	require.True(t, ErrInput.Is(err))
	require.EqualError(t, err, `field "Threshold": invalid input`)
}

func TestRecover(t *testing.T) {
	var err error
	func() {
		defer Recover(&err)
		panic("boom")
	}()
	require.True(t, ErrPanic.Is(err))
}
