package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NotFound("order", "abc"), http.StatusNotFound},
		{InvalidTransition("order", "pending", "delivered"), http.StatusConflict},
		{Duplicate("quotation", "q-1", "already exists"), http.StatusConflict},
		{AmountMismatch("order", "o-1", "625.00", "600.00"), http.StatusBadRequest},
		{AccessDenied("order", "not yours"), http.StatusForbidden},
		{QuotationExpired("q-1"), http.StatusGone},
		{VerificationFailed("not settled"), http.StatusBadRequest},
		{Validation("bad input"), http.StatusBadRequest},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), "error: %v", tc.err)
	}
}

func TestKindOfUnwrapsChains(t *testing.T) {
	wrapped := fmt.Errorf("while accepting: %w", QuotationExpired("q-1"))
	assert.Equal(t, KindQuotationExpired, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindQuotationExpired))
	assert.Equal(t, Kind(""), KindOf(errors.New("untyped")))
}

func TestExistingID(t *testing.T) {
	assert.Equal(t, "q-1", ExistingID(Duplicate("quotation", "q-1", "exists")))
	assert.Empty(t, ExistingID(NotFound("quotation", "q-1")))
	assert.Empty(t, ExistingID(errors.New("untyped")))
}

func TestErrorString(t *testing.T) {
	err := AmountMismatch("order", "o-1", "625.00", "600.00")
	assert.Contains(t, err.Error(), "o-1")
	assert.Contains(t, err.Error(), "625.00")
}
