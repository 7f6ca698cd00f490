package cmd

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oerrors "github.com/opencubicchunks/modrel/internal/errors"
	"github.com/opencubicchunks/modrel/internal/output"
)

func TestNewRootCmd(t *testing.T) {
	root := NewRootCmd()

	assert.Equal(t, "modrel", root.Use)
	for _, flag := range []string{"config", "dir", "verbose", "timestamps"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"build", "describe", "plan", "config", "version"}, names)
}

func TestExitWith(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"validation", oerrors.NewValidationError("bad", "", "", ""), oerrors.ExitValidationError},
		{"not found", oerrors.NewNotFoundError("missing", "", ""), oerrors.ExitNotFound},
		{"ambiguous branch", oerrors.NewAmbiguousBranchError([]string{"GIT_BRANCH"}), oerrors.ExitAmbiguousBranch},
		{"other", errors.New("boom"), oerrors.ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := exitWith(tt.err)

			var exitErr *oerrors.ExitError
			require.True(t, errors.As(err, &exitErr))
			assert.Equal(t, tt.code, exitErr.Code)
			assert.True(t, exitErr.Printed)
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.NoError(t, exitWith(nil))

	existing := oerrors.NewExitError(errors.New("x"), oerrors.ExitBundleFailed)
	assert.Same(t, existing, exitWith(existing))
}

func TestOutputFlagParse(t *testing.T) {
	for _, in := range []string{"text", "yaml", "yml", "json", ""} {
		f := OutputFlag{Format: in}
		_, err := f.Parse()
		assert.NoError(t, err, in)
	}

	f := OutputFlag{Format: "xml"}
	_, err := f.Parse()
	assert.ErrorIs(t, err, oerrors.ErrValidation)

	f = OutputFlag{Format: "YAML"}
	format, err := f.Parse()
	require.NoError(t, err)
	assert.Equal(t, output.FormatYAML, format)
}
