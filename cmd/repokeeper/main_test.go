package main

import (
	"bytes"
	"testing"

	"github.com/repokeeper/repokeeper/domain/operation"
	"github.com/repokeeper/repokeeper/domain/repository"
	v1 "github.com/repokeeper/repokeeper/infrastructure/api/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("LOG_LEVEL", "ERROR")

	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "repokeeper version dev")
}

func TestList_Empty(t *testing.T) {
	out, err := execute(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "no repositories tracked")
}

func TestOperations_Empty(t *testing.T) {
	out, err := execute(t, "operations")
	require.NoError(t, err)
	assert.Contains(t, out, "no operations recorded")
}

func TestClone_InvalidURL(t *testing.T) {
	_, err := execute(t, "clone", "ftp://example.com/x")
	assert.ErrorIs(t, err, repository.ErrInvalidURL)
}

func TestUpdate_Args(t *testing.T) {
	_, err := execute(t, "update")
	assert.Error(t, err, "a name is required without --all")

	_, err = execute(t, "update", "--all", "repo")
	assert.Error(t, err, "--all takes no name")

	out, err := execute(t, "update", "--all")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestGet_Unknown(t *testing.T) {
	for _, args := range [][]string{
		{"compress", "ghost"},
		{"ls", "ghost"},
		{"delete", "ghost"},
	} {
		_, err := execute(t, args...)
		assert.ErrorIs(t, err, repository.ErrNotFound, args[0])
	}
}

func TestPrintOperations(t *testing.T) {
	var out bytes.Buffer
	printOperations(&out, []operation.Snapshot{
		{Code: 1, Operation: "Clone Repository", Message: "https://github.com/a/b.git", StartTime: "2026-01-02 10:00:00", Total: 2, Finished: 2,
			Steps: []operation.StepSnapshot{{Name: "Cloning repository", Status: operation.StatusNormal, Finished: true}}},
		{Code: 2, Operation: "Update Repository", Message: "b", StartTime: "2026-01-02 10:05:00", Total: 2, Finished: 2,
			Steps: []operation.StepSnapshot{{Name: "Update failed", Status: operation.StatusError, Finished: true}}},
	})

	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Contains(t, string(lines[0]), "OPERATION")
	assert.Contains(t, string(lines[1]), "ok")
	assert.Contains(t, string(lines[2]), "errors")
	assert.Contains(t, string(lines[2]), "2/2")
}

func TestOutputFormats(t *testing.T) {
	out, err := execute(t, "operations", "-o", "json")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)

	out, err = execute(t, "list", "--output", "yaml")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)

	_, err = execute(t, "list", "-o", "xml")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestRender_YAMLUsesSnakeCase(t *testing.T) {
	var out bytes.Buffer
	snaps := []operation.Snapshot{{Code: 3, Operation: "Compress Repository", NotFinished: 1, Running: true}}
	require.NoError(t, render(&out, outputYAML, v1.OperationsToDTO(snaps).Data, func() {}))
	assert.Contains(t, out.String(), "operation: Compress Repository")
	assert.Contains(t, out.String(), "not_finished: 1")
	assert.Contains(t, out.String(), "steps: []")
}
