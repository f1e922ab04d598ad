package errutil

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

var errNoFunds = UnprocessableEntity("insufficient balance")

func TestErrorsIsMatchesSentinels(t *testing.T) {
	require.ErrorIs(t, errNoFunds, errNoFunds)

	// the same error rebuilt elsewhere still matches
	require.ErrorIs(t, UnprocessableEntity("insufficient balance"), errNoFunds)

	// options don't break matching
	require.ErrorIs(t, UnprocessableEntity("insufficient balance", WithErr(io.EOF)), errNoFunds)
	require.ErrorIs(t, UnprocessableEntity("insufficient balance", WithDetails(Detail{Field: "amount", Message: "too large"})), errNoFunds)

	// matching survives another layer of wrapping
	require.ErrorIs(t, fmt.Errorf("debit: %w", errNoFunds), errNoFunds)
}

func TestErrorsIsRejectsDifferentErrors(t *testing.T) {
	require.NotErrorIs(t, UnprocessableEntity("some other message"), errNoFunds)
	require.NotErrorIs(t, Conflict("insufficient balance"), errNoFunds)
	require.NotErrorIs(t, io.EOF, errNoFunds)
}

func TestUnwrapReachesCause(t *testing.T) {
	err := Internal("query failed", WithErr(io.EOF))
	require.ErrorIs(t, err, io.EOF)

	var be BaseError
	require.True(t, errors.As(err, &be))
	require.Equal(t, StatusInternal, be.Code)
}

func TestErrorStringIncludesCause(t *testing.T) {
	err := NotFound("wallet not found")
	require.Equal(t, "[NOT_FOUND] wallet not found", err.Error())

	wrapped := NotFound("wallet not found", WithErr(io.EOF))
	require.Equal(t, "[NOT_FOUND] wallet not found: EOF", wrapped.Error())
}
