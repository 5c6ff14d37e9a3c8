package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_HTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindBadRequest, http.StatusBadRequest},
		{KindUnauthorized, http.StatusUnauthorized},
		{KindForbidden, http.StatusForbidden},
		{KindNotFound, http.StatusNotFound},
		{KindConflict, http.StatusConflict},
		{KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.HTTPStatus())
		})
	}
}

func TestKindOf_WrappedChain(t *testing.T) {
	base := NotFound("submission not found")
	wrapped := fmt.Errorf("load: %w", base)

	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindNotFound))

	ae, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, "submission not found", ae.Message)
}

func TestKindOf_UntypedIsInternal(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.False(t, IsKind(nil, KindInternal))
}

func TestError_UnwrapAndMessage(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal("failed to save submission", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to save submission: connection reset", err.Error())
}

func TestError_WithMetaDoesNotMutate(t *testing.T) {
	base := Unauthorized("session expired")
	withMeta := base.WithMeta("expired", true)

	assert.Nil(t, base.Meta)
	assert.Equal(t, true, withMeta.Meta["expired"])
	assert.Equal(t, KindUnauthorized, withMeta.Kind)
}
