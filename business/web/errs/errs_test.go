package errs_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/ardanlabs/powchain/business/sys/validate"
	"github.com/ardanlabs/powchain/business/web/errs"
	"github.com/stretchr/testify/assert"
)

func TestToResponse(t *testing.T) {
	sentinel := errors.New("block not found")

	resp, status := errs.ToResponse(fmt.Errorf("query: %w", errs.NewTrusted(sentinel, http.StatusNotFound)))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "block not found", resp.Error)

	resp, status = errs.ToResponse(validate.FieldErrors{{Field: "hash", Error: "hash is required"}})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, map[string]string{"hash": "hash is required"}, resp.Fields)

	resp, status = errs.ToResponse(errors.New("secret database detail"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.NotContains(t, resp.Error, "secret")

	assert.ErrorIs(t, errs.NewTrusted(sentinel, http.StatusNotFound), sentinel)
}
