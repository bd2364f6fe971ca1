package app

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

const rawLog = `IMU receiver
[01],[64],[00],[00],[7F],[00],[00],[00],01:02:12:00:00:000
[02],[63],[00],[00],[00],[7F],[00],[00],01:02:12:00:00:010
[03],[62],[00],[00],[00],[00],[7F],[00],01:02:12:00:00:020
[01],[64],[00],[01],[7F],[00],[00],[00],01:02:12:00:00:100
[03],[62],[00],[01],[00],[00],[7F],[00],01:02:12:00:00:120
[01],[64],[00],[02],[7F],[00],[00],[00],01:02:12:00:00:200
[02],[63],[00],[02],[00],[7F],[00],[00],01:02:12:00:00:210
[03],[62],[00],[02],[00],[00],[7F],[00],01:02:12:00:00:220
`

func newTestApp(out io.Writer) *cli.App {
	var level slog.LevelVar
	app := New(slog.New(slog.NewTextHandler(io.Discard, nil)), &level)
	app.Writer = out
	app.ExitErrHandler = func(*cli.Context, error) {}
	return app
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, newTestApp(&out).RunContext(context.Background(), append([]string{AppName}, args...)))
	return out.String()
}

func TestAlignCommand(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "capture.log")
	output := filepath.Join(dir, "aligned.csv")
	db := filepath.Join(dir, "imu.db")
	require.NoError(t, os.WriteFile(input, []byte(rawLog), 0o600))

	report := run(t, "align", "--split", "--store", "--db", db, input, output)
	assert.Contains(t, report, "Rows:        3")
	assert.Contains(t, report, "Full rows:   2 (66.67%)")

	aligned, err := os.ReadFile(output)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(aligned)), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "TSTAMP,COUNTER,01_BAT"))
	// device 2 missed counter 1
	assert.Contains(t, lines[2], ",0,,,,,,98,")

	for _, name := range []string{"aligned_imu01.csv", "aligned_imu02.csv", "aligned_imu03.csv"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	sessions := run(t, "sessions", "--db", db)
	assert.Contains(t, sessions, "capture.log")
}

func TestIngestAndWindowCommands(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "capture.log")
	db := filepath.Join(dir, "imu.db")
	output := filepath.Join(dir, "window.csv")
	require.NoError(t, os.WriteFile(input, []byte(rawLog), 0o600))

	out := run(t, "ingest", "--db", db, input)
	assert.Contains(t, out, "session 1: 8 samples from 3 of 3 devices")

	out = run(t, "window", "--db", db, "--session", "1", "--start", "12:00:00", "--duration", "1", "--output", output)
	assert.Contains(t, out, "counters 0..10 (10 ticks)")
	assert.Contains(t, out, "Rows:        10")
	assert.FileExists(t, output)
}

func TestWatchCommand_StopsWithoutData(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "capture.log")
	db := filepath.Join(dir, "imu.db")
	require.NoError(t, os.WriteFile(input, []byte(rawLog), 0o600))

	run(t, "ingest", "--db", db, input)
	run(t, "watch", "--db", db, "--session", "1", "--start", "12:00:00", "--duration", "1", "--interval", "1ms")
}

func TestAlignCommand_Errors(t *testing.T) {
	app := newTestApp(io.Discard)

	err := app.RunContext(context.Background(), []string{AppName, "align", "only-input.log"})
	assert.Error(t, err)

	err = app.RunContext(context.Background(), []string{AppName, "align", filepath.Join(t.TempDir(), "missing.log"), "out.csv"})
	assert.Error(t, err)
}

func TestSplitPath(t *testing.T) {
	assert.Equal(t, "out/aligned_imu02.csv", splitPath("out/aligned.csv", 2))
	assert.Equal(t, "aligned_imu10", splitPath("aligned", 10))
}
