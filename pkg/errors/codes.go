package errors

import "strings"

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeStorage            ErrorCode = "COMMON_017"
	ErrCodeConfig             ErrorCode = "COMMON_018"
)

// Aliases
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("UNKNOWN")

	CodeMoleculeInvalidSMILES = ErrCodeMoleculeInvalidSMILES
	CodeEmptyLibrary          = ErrCodeEmptyLibrary
)

// Molecule Module Error Codes
const (
	ErrCodeMoleculeInvalidSMILES       ErrorCode = "MOL_001"
	ErrCodeMoleculeInvalidValence      ErrorCode = "MOL_002"
	ErrCodeMoleculeNotFound            ErrorCode = "MOL_004"
	ErrCodeFingerprintGenerationFailed ErrorCode = "MOL_007"
	ErrCodeFingerprintTypeUnsupported  ErrorCode = "MOL_008"
	ErrCodeSimilaritySearchFailed      ErrorCode = "MOL_009"
	ErrCodeEmptyLibrary                ErrorCode = "MOL_016"
)

// Data Source Error Codes
const (
	ErrCodeDataSourceUnavailable ErrorCode = "SRC_001"
	ErrCodeDataSourceParseError  ErrorCode = "SRC_004"
)

// Rendering Error Codes
const (
	ErrCodeRenderFailed  ErrorCode = "REN_001"
	ErrCodeRenderNoCells ErrorCode = "REN_002"
	ErrCodeRenderLayout  ErrorCode = "REN_003"
)

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "operation timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeStorage:            "object storage error",
	ErrCodeConfig:             "invalid configuration",

	ErrCodeMoleculeInvalidSMILES:       "invalid SMILES",
	ErrCodeMoleculeInvalidValence:      "explicit valence exceeds permitted maximum",
	ErrCodeMoleculeNotFound:            "molecule not found",
	ErrCodeFingerprintGenerationFailed: "failed to generate fingerprint",
	ErrCodeFingerprintTypeUnsupported:  "unsupported fingerprint type",
	ErrCodeSimilaritySearchFailed:      "similarity ranking failed",
	ErrCodeEmptyLibrary:                "molecule library is empty",

	ErrCodeDataSourceUnavailable: "data source unavailable",
	ErrCodeDataSourceParseError:  "failed to read data source",

	ErrCodeRenderFailed:  "failed to render image",
	ErrCodeRenderNoCells: "nothing to render",
	ErrCodeRenderLayout:  "failed to lay out molecule",
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 1 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
