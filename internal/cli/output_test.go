package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/linql/internal/catalog"
	"github.com/roach88/linql/internal/config"
	"github.com/roach88/linql/internal/qerr"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]string{"result": "success"}
	err := formatter.Success(data)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("E001", "compilation failed", nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	assert.NotNil(t, resp.Error)
	assert.Equal(t, "E001", resp.Error.Code)
	assert.Equal(t, "compilation failed", resp.Error.Message)
}

func TestOutputFormatter_JSONErrorWithDetails(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	details := map[string]string{"file": "search.json", "line": "42"}
	err := formatter.Error("E002", "syntax error", details)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	assert.NotNil(t, resp.Error)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Success("All searches valid")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "All searches valid")
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: false,
	}

	err := formatter.Error("E001", "compilation failed", nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E001]")
	assert.Contains(t, buf.String(), "compilation failed")
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	details := map[string]string{"file": "search.json"}
	err := formatter.Error("E001", "compilation failed", details)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E001]")
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name     string
		verbose  bool
		wantLog  bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:  "text",
				Writer:  buf,
				Verbose: tt.verbose,
			}

			formatter.VerboseLog("Processing %s", "search.json")

			if tt.wantLog {
				assert.Contains(t, buf.String(), "Processing search.json")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestCLIResponse_JSON(t *testing.T) {
	resp := CLIResponse{
		Status: "ok",
		Data:   map[string]int{"count": 42},
	}

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded CLIResponse
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)
	assert.Equal(t, "ok", decoded.Status)
}

func TestCLIError_JSON(t *testing.T) {
	cliErr := CLIError{
		Code:    "E100",
		Message: "validation failed",
		Details: []string{"missing field: name"},
	}

	data, err := json.Marshal(cliErr)
	require.NoError(t, err)

	var decoded CLIError
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)
	assert.Equal(t, "E100", decoded.Code)
	assert.Equal(t, "validation failed", decoded.Message)
}

func TestExitError(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapExitError(ExitCommandError, "E005", cause)

	assert.Equal(t, "E005: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("wrapped: %w", err)))
	assert.Equal(t, ExitFailure, GetExitCode(cause))
	assert.Equal(t, "plain", NewExitError(ExitFailure, "plain").Error())
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want CLIError
	}{
		{
			name: "coded",
			err: fmt.Errorf("search: %w", qerr.New(qerr.CodeMemberNotFound, "Item has no member %q", "Qyt").
				At("LinqlProperty").
				WithSuggestion(`did you mean "Qty"?`)),
			want: CLIError{
				Code:       "MEMBER_NOT_FOUND",
				Message:    `Item has no member "Qyt"`,
				Node:       "LinqlProperty",
				Suggestion: `did you mean "Qty"?`,
			},
		},
		{
			name: "coded with cause",
			err:  qerr.Wrap(qerr.CodeValueCoercion, errors.New("not a number"), "Qty"),
			want: CLIError{Code: "VALUE_COERCION", Message: "Qty", Details: "not a number"},
		},
		{
			name: "config",
			err:  config.ValidationError{Errors: []config.FieldError{{Field: "batch.workers", Message: "must be positive"}}},
			want: CLIError{Code: ErrCodeConfig, Message: "invalid configuration", Details: []string{"batch.workers: must be positive"}},
		},
		{
			name: "schema",
			err:  &catalog.SchemaError{Field: "namespace", Message: "namespace is required"},
			want: CLIError{Code: ErrCodeCatalog},
		},
		{
			name: "fallback",
			err:  errors.New("boom"),
			want: CLIError{Code: ErrCodeStore, Message: "boom"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fallback := ErrCodeStore
			got := describeError(tt.err, fallback)
			assert.Equal(t, tt.want.Code, got.Code)
			if tt.want.Message != "" {
				assert.Equal(t, tt.want.Message, got.Message)
			}
			assert.Equal(t, tt.want.Node, got.Node)
			assert.Equal(t, tt.want.Suggestion, got.Suggestion)
			assert.Equal(t, tt.want.Details, got.Details)
		})
	}

	assert.Equal(t, ErrCodeGeneric, describeError(errors.New("x"), "").Code)
}

func TestOutputFormatter_Fail(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	err := formatter.Fail(ExitFailure, ErrCodeGeneric,
		qerr.New(qerr.CodeTypeResolution, "unknown type %q", "Itme").WithSuggestion(`did you mean "Item"?`))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), `Error [TYPE_RESOLUTION]: unknown type "Itme"`)
	assert.Contains(t, buf.String(), `did you mean "Item"?`)
}
