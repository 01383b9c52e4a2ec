package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCheck(t *testing.T, source string, extraArgs ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "problem.sexp")
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	args := append([]string{"check", path}, extraArgs...)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestCheckCommandReportsInvalidOnImmediateFalsity(t *testing.T) {
	out, err := runCheck(t, `
		(clause F () false)
		(top F)
	`, "--max-levels=8")
	require.Error(t, err, "an Invalid verdict should exit non-zero")
	assert.NotEmpty(t, out)
}

func TestCheckCommandFailsOnAMalformedProblemFile(t *testing.T) {
	_, err := runCheck(t, `(clause F`)
	assert.Error(t, err)
}
