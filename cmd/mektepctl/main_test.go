package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const roster = "id,fullName,className,gender,avgGrade,absences,unexcusedAbsences,homeworkCompletion\n" +
	"s-1,Сейткали Ерлан,10A,male,2.3,9,7,30\n" +
	"s-2,Омарова Дана,10A,female,4.9,0,0,100\n"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeRoster(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roster.csv")
	require.NoError(t, os.WriteFile(path, []byte(roster), 0o600))
	return path
}

func TestScoreCmd(t *testing.T) {
	in := writeRoster(t)
	out := filepath.Join(t.TempDir(), "report.xlsx")

	output, err := execute(t, "score", in, "--out", out, "--locale", "ru")
	require.NoError(t, err)
	assert.Contains(t, output, "2 student(s) in 1 class(es)")
	assert.FileExists(t, out)
}

func TestImportCmd_DryRun(t *testing.T) {
	output, err := execute(t, "import", writeRoster(t), "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, output, "parsed 2 student(s)")
}

func TestCommands_Errors(t *testing.T) {
	_, err := execute(t, "score")
	assert.Error(t, err, "file argument is required")

	_, err = execute(t, "import", filepath.Join(t.TempDir(), "missing.csv"), "--dry-run")
	assert.Error(t, err)

	_, err = execute(t, "score", "roster.txt")
	assert.Error(t, err)
}
