package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ordset/internal/dberr"
	"github.com/roach88/ordset/internal/store"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Success(ItemView{ID: "item-001", Category: "todo", Title: "milk"})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "item-001", resp.Data.(map[string]any)["id"])
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("E001", "move failed", map[string]string{"id": "item-001"})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E001", resp.Error.Code)
	assert.Equal(t, "move failed", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: false,
	}

	err := formatter.Error("E001", "move failed", map[string]string{"id": "x"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E001]: move failed")
	assert.NotContains(t, buf.String(), "Details:")
}

func TestOutputFormatter_Fail(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      string
		exit      int
		wantPhase string
	}{
		{"not found", fmt.Errorf("get: %w", store.ErrNotFound), ErrCodeNotFound, ExitFailure, ""},
		{"conflict", dberr.Wrap("move", "shift-down", errors.New("UNIQUE constraint failed"), true), ErrCodeConflict, ExitFailure, "shift-down"},
		{"programmer", dberr.Programmer("bulk", "requires save"), ErrCodeProgrammer, ExitCommandError, ""},
		{"store", dberr.Wrap("move", "place", errors.New("disk I/O error"), false), ErrCodeStore, ExitFailure, "place"},
		{"other", errors.New("boom"), ErrCodeGeneric, ExitFailure, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "json", Writer: buf}

			err := formatter.Fail("failed", tt.err)
			assert.Equal(t, tt.exit, GetExitCode(err))
			assert.ErrorIs(t, err, tt.err)

			var resp CLIResponse
			require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, tt.wantPhase, resp.Error.Phase)
		})
	}
}

func TestOutputFormatter_TextPhaseVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}

	_ = formatter.Fail("failed to move item", dberr.Wrap("move", "shift-up", errors.New("locked"), true))
	assert.Contains(t, buf.String(), "Error [E010]")
	assert.Contains(t, buf.String(), "Phase: shift-up")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			diag := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:    "json",
				Writer:    out,
				ErrWriter: diag,
				Verbose:   tt.verbose,
			}

			formatter.VerboseLog("opening %s", "todo.db")

			assert.Empty(t, out.String())
			if tt.wantLog {
				assert.Contains(t, diag.String(), "opening todo.db")
			} else {
				assert.Empty(t, diag.String())
			}
		})
	}
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad flag")))
	assert.Equal(t, ExitFailure, GetExitCode(fmt.Errorf("wrapped: %w", NewExitError(ExitFailure, "x"))))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
}
