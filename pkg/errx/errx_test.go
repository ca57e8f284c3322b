package errx

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testErrors = NewRegistry("TEST")

var (
	errTestMissing = testErrors.Register("MISSING", TypeNotFound, 0, "Thing not found")
	errTestDown    = testErrors.Register("DOWN", TypeExternal, http.StatusServiceUnavailable, "Thing down")
)

func TestRegistryPrefixesCodes(t *testing.T) {
	assert.Equal(t, "TEST_MISSING", errTestMissing.Code)
	assert.Equal(t, http.StatusNotFound, errTestMissing.HTTPStatus)
	assert.Equal(t, http.StatusServiceUnavailable, errTestDown.HTTPStatus)

	code, ok := testErrors.Get("DOWN")
	require.True(t, ok)
	assert.Same(t, errTestDown, code)
}

func TestIsMatchesByCode(t *testing.T) {
	err := testErrors.New(errTestMissing).WithDetail("id", "42")
	wrapped := fmt.Errorf("loading: %w", err)

	assert.True(t, errors.Is(wrapped, testErrors.New(errTestMissing)))
	assert.False(t, errors.Is(wrapped, testErrors.New(errTestDown)))
	assert.True(t, IsCode(wrapped, errTestMissing))
	assert.False(t, IsCode(wrapped, errTestDown))
	assert.False(t, IsCode(errors.New("plain"), errTestMissing))
}

func TestIsCodeFindsInnerCode(t *testing.T) {
	inner := testErrors.NewWithCause(errTestDown, errors.New("dial tcp: refused"))
	outer := Wrap(inner, "enqueue failed", TypeInternal)

	// Wrap keeps the inner code, so both views agree.
	assert.Equal(t, errTestDown.Code, outer.Code)
	assert.True(t, IsCode(outer, errTestDown))
	assert.Contains(t, outer.Error(), "dial tcp: refused")
}

func TestFromErrorHidesUncodedMessages(t *testing.T) {
	e := FromError(errors.New("secret connection string"))
	assert.Equal(t, http.StatusInternalServerError, e.HTTPStatus)
	assert.Equal(t, "Internal server error", e.ToHTTPResponse().Message)

	coded := testErrors.New(errTestMissing)
	assert.Same(t, coded, FromError(coded))
}
