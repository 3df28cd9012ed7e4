package pack

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveBinOverrideWins(t *testing.T) {
	t.Setenv(BinEnv, "/env/greentic-pack")
	bin, err := ResolveBin("/explicit/greentic-pack")
	require.NoError(t, err)
	assert.Equal(t, "/explicit/greentic-pack", bin)
}

func TestResolveBinEnvFallback(t *testing.T) {
	t.Setenv(BinEnv, "  /env/greentic-pack  ")
	bin, err := ResolveBin("")
	require.NoError(t, err)
	assert.Equal(t, "/env/greentic-pack", bin)
}

func TestResolveBinPathLookupFailure(t *testing.T) {
	t.Setenv(BinEnv, "")
	t.Setenv("PATH", t.TempDir())
	_, err := ResolveBin("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "greentic-pack not found on PATH")
}

// fakeTool writes a shell script that logs its arguments and exits with the
// given status.
func fakeTool(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixture")
	}
	path := filepath.Join(t.TempDir(), "greentic-pack")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestExecPackerRunsSubcommands(t *testing.T) {
	log := filepath.Join(t.TempDir(), "calls.log")
	bin := fakeTool(t, `echo "$@" >> `+log+"\nexit 0\n")

	p := &ExecPacker{Bin: bin}
	ctx := context.Background()
	dir := t.TempDir()

	require.NoError(t, p.New(ctx, dir, "demo"))
	require.NoError(t, p.Update(ctx, dir))
	require.NoError(t, p.Components(ctx, dir))
	require.NoError(t, p.Resolve(ctx, dir))
	require.NoError(t, p.Doctor(ctx, dir))

	data, err := os.ReadFile(log)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "new --dir "+dir+" demo", lines[0])
	assert.Equal(t, "update --in "+dir, lines[1])
	assert.Equal(t, "components --in "+dir, lines[2])
	assert.Equal(t, "resolve --in "+dir, lines[3])
	assert.Equal(t, "doctor --in "+dir, lines[4])
}

func TestExecPackerBuildCapturesOutput(t *testing.T) {
	bin := fakeTool(t, "echo built ok\necho progress >&2\nexit 0\n")

	p := &ExecPacker{Bin: bin}
	out, err := p.Build(context.Background(), t.TempDir(), "out.gtpack")
	require.NoError(t, err)
	assert.Contains(t, out.Stdout, "built ok")
	assert.Contains(t, out.Stderr, "progress")
}

func TestExecPackerBuildFailureSurfacesStderr(t *testing.T) {
	bin := fakeTool(t, "echo schema violation in flow main >&2\nexit 3\n")

	p := &ExecPacker{Bin: bin}
	_, err := p.Build(context.Background(), t.TempDir(), "out.gtpack")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "packaging build failed")
	assert.Contains(t, err.Error(), "schema violation in flow main")
}

func TestExecPackerMissingBinary(t *testing.T) {
	p := &ExecPacker{Bin: filepath.Join(t.TempDir(), "nope")}
	err := p.Update(context.Background(), t.TempDir())
	require.Error(t, err)
}

func TestTailLines(t *testing.T) {
	input := "one\ntwo\nthree\nfour\n"
	assert.Equal(t, "three\nfour", tailLines(input, 2))
	assert.Equal(t, "one\ntwo\nthree\nfour", tailLines(input, 10))
	assert.Equal(t, "", tailLines("", 5))
}
