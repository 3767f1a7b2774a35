package binlog

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var logNameRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}_\d+\.log$`)

func TestFileSink_NamesFirstFile(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSink(dir, 1<<20, nil, nil)
	require.NoError(t, err)
	defer sink.Close()

	name := filepath.Base(sink.Path())
	assert.Regexp(t, logNameRe, name)
	assert.True(t, strings.HasSuffix(name, "_1.log"))

	date := time.Now().Format("2006-01-02")
	assert.True(t, strings.HasPrefix(name, date+"_"))
}

func TestFileSink_ResumesSequenceAfterReopen(t *testing.T) {
	dir := t.TempDir()
	date := time.Now().Format("2006-01-02")

	// Pre-existing files from earlier runs today.
	for _, n := range []int{1, 2, 7} {
		path := filepath.Join(dir, fmt.Sprintf("%s_%d.log", date, n))
		require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o644))
	}

	sink, err := NewFileSink(dir, 1<<20, nil, nil)
	require.NoError(t, err)
	defer sink.Close()

	assert.Equal(t, fmt.Sprintf("%s_8.log", date), filepath.Base(sink.Path()))
}

func TestFileSink_SizeRotation(t *testing.T) {
	dir := t.TempDir()
	var stats Statistics
	sink, err := NewFileSink(dir, 4096, newDiagnostics(), &stats)
	require.NoError(t, err)

	// Each line is 100 bytes; enough of them to force at least two
	// rotations at a 4KiB cap.
	line := strings.Repeat("a", 99) + "\n"
	var want strings.Builder
	for i := 0; i < 120; i++ {
		numbered := fmt.Sprintf("%03d%s", i, line[3:])
		_, err := sink.Write([]byte(numbered))
		require.NoError(t, err)
		want.WriteString(numbered)
	}
	require.NoError(t, sink.Close())

	assert.GreaterOrEqual(t, stats.Rotations.Load(), int64(2))

	// Concatenating the files in counter order yields the full stream.
	date := time.Now().Format("2006-01-02")
	var got strings.Builder
	for n := 1; ; n++ {
		data, err := os.ReadFile(filepath.Join(dir, fmt.Sprintf("%s_%d.log", date, n)))
		if err != nil {
			break
		}
		got.Write(data)
	}
	assert.Equal(t, want.String(), got.String())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(entries), 3)
	for _, e := range entries {
		assert.Regexp(t, logNameRe, e.Name())
	}
}

func TestFileSink_OpenNaming(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSink(dir, 1<<20, nil, nil)
	require.NoError(t, err)
	defer sink.Close()

	// A sequence opened for an explicit date lands on the exact name.
	require.NoError(t, sink.open("2031-05-06", 3))
	assert.Equal(t, "2031-05-06_3.log", filepath.Base(sink.Path()))

	// scanMaxSeq ignores files of other dates and non-log names.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2031-05-07_9.log"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644))
	assert.Equal(t, 3, sink.scanMaxSeq("2031-05-06"))
	assert.Equal(t, 9, sink.scanMaxSeq("2031-05-07"))
	assert.Equal(t, 0, sink.scanMaxSeq("2031-05-08"))
}

func TestFileSink_TracksBytesWritten(t *testing.T) {
	dir := t.TempDir()
	var stats Statistics
	sink, err := NewFileSink(dir, 1<<20, nil, &stats)
	require.NoError(t, err)
	defer sink.Close()

	_, err = sink.Write([]byte("0123456789"))
	require.NoError(t, err)
	sink.Flush()
	assert.Equal(t, int64(10), stats.BytesWritten.Load())
	assert.Equal(t, int64(0), stats.SinkErrors.Load())
}

func TestClock_Format(t *testing.T) {
	tests := []struct {
		ns   uint64
		want string
	}{
		{0, "00:00:00.000"},
		{1_000_000, "00:00:00.001"},
		{999_000_000, "00:00:00.999"},
		{uint64(3*3600+4*60+5)*1_000_000_000 + 67_000_000, "03:04:05.067"},
		{uint64(23*3600+59*60+59)*1_000_000_000 + 999_000_000, "23:59:59.999"},
		// Day wrap: 24h + 1s reduces to 00:00:01.
		{uint64(86401) * 1_000_000_000, "00:00:01.000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, string(appendClock(nil, tt.ns)))
	}
}
