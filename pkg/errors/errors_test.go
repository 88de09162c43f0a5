// Package errors_test provides unit tests for the AppError type, factory
// functions, and error-chain helpers.
package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/molsim/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// TestNew
// ─────────────────────────────────────────────────────────────────────────────

func TestNew_FieldsAreSetCorrectly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    errors.ErrorCode
		message string
	}{
		{"internal error", errors.CodeInternal, "unexpected failure"},
		{"invalid smiles", errors.CodeMoleculeInvalidSMILES, "unexpected character 't'"},
		{"invalid param", errors.CodeInvalidParam, "radius must not be negative"},
		{"empty library", errors.CodeEmptyLibrary, "no molecules parsed"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ae := errors.New(tc.code, tc.message)

			require.NotNil(t, ae)
			assert.Equal(t, tc.code, ae.Code)
			assert.Equal(t, tc.message, ae.Message)
			assert.Empty(t, ae.Detail)
			assert.Nil(t, ae.Cause)
			assert.NotEmpty(t, ae.Stack)
		})
	}
}

func TestAppError_ErrorFormat(t *testing.T) {
	t.Parallel()

	ae := errors.New(errors.CodeEmptyLibrary, "no molecules parsed")
	assert.Equal(t, "[MOL_016] no molecules parsed", ae.Error())

	withDetail := ae.WithDetail("path=data/AAAA.smi")
	assert.Equal(t, "[MOL_016] no molecules parsed: path=data/AAAA.smi", withDetail.Error())

	wrapped := errors.Wrap(fmt.Errorf("connection refused"), errors.ErrCodeDataSourceUnavailable, "fetch failed")
	assert.Equal(t, "[SRC_001] fetch failed: connection refused", wrapped.Error())
}

// ─────────────────────────────────────────────────────────────────────────────
// TestWrap
// ─────────────────────────────────────────────────────────────────────────────

func TestWrap_NilErrReturnsNil(t *testing.T) {
	t.Parallel()

	assert.Nil(t, errors.Wrap(nil, errors.CodeInternal, "should not matter"))
}

func TestWrap_CauseChainIsPreserved(t *testing.T) {
	t.Parallel()

	root := stderrors.New("disk full")
	ae := errors.Wrap(root, errors.ErrCodeRenderFailed, "write png")

	require.NotNil(t, ae)
	assert.True(t, stderrors.Is(ae, root))
	assert.Equal(t, root, stderrors.Unwrap(ae))
}

func TestWrap_UnknownCodePreservesOriginal(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.CodeMoleculeInvalidSMILES, "bad ring closure")
	outer := errors.Wrap(inner, errors.CodeUnknown, "parse line 7")

	assert.Equal(t, errors.CodeMoleculeInvalidSMILES, outer.Code)
}

// ─────────────────────────────────────────────────────────────────────────────
// Chain helpers
// ─────────────────────────────────────────────────────────────────────────────

func TestIsCode(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.CodeEmptyLibrary, "empty")
	outer := fmt.Errorf("run: %w", errors.Wrap(inner, errors.ErrCodeSimilaritySearchFailed, "rank"))

	assert.True(t, errors.IsCode(outer, errors.CodeEmptyLibrary))
	assert.True(t, errors.IsCode(outer, errors.ErrCodeSimilaritySearchFailed))
	assert.False(t, errors.IsCode(outer, errors.ErrCodeRenderFailed))
	assert.False(t, errors.IsCode(nil, errors.CodeInternal))
}

func TestGetCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(stderrors.New("plain")))
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(errors.NotFound("x")))
	assert.Equal(t, errors.CodeInvalidParam, errors.GetCode(errors.InvalidParam("x")))
	assert.Equal(t, errors.CodeInternal, errors.GetCode(errors.Internal("x")))
}

func TestWithDetail_NilReceiver(t *testing.T) {
	t.Parallel()

	var ae *errors.AppError
	assert.Nil(t, ae.WithDetail("x"))
}

func TestErrorf(t *testing.T) {
	t.Parallel()

	ae := errors.Errorf(errors.CodeInvalidParam, "top_n must be positive, got %d", -3)
	assert.Equal(t, "top_n must be positive, got -3", ae.Message)
}
