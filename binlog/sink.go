package binlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	timecache "github.com/agilira/go-timecache"
)

// FileSink appends formatted log data to {dir}/YYYY-MM-DD_N.log files.
// The sequence number N is chosen on open as one past the highest
// existing number for the day, restarts at 1 when the date changes, and
// increments when the in-process size would exceed maxFileSize. The
// date check on every write reads a cached millisecond clock rather
// than querying the OS.
//
// Only the consumer goroutine writes; hot-path callers never see sink
// errors. Failures are counted and reported once per class through the
// diagnostics channel, and writing keeps going on the file that still
// accepts data.
type FileSink struct {
	dir         string
	maxFileSize int64
	clock       *timecache.TimeCache
	diag        *diagnostics
	stats       *Statistics

	file *os.File
	path string
	size int64
	date string
	seq  int
}

// NewFileSink creates the log directory if needed and opens the first
// file for today.
func NewFileSink(dir string, maxFileSize int64, diag *diagnostics, stats *Statistics) (*FileSink, error) {
	if maxFileSize <= 0 {
		maxFileSize = defaultMaxFileSize
	}
	if diag == nil {
		diag = newDiagnostics()
	}
	if stats == nil {
		stats = &Statistics{}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory %q: %w", dir, err)
	}
	s := &FileSink{
		dir:         dir,
		maxFileSize: maxFileSize,
		clock:       timecache.NewWithResolution(time.Millisecond),
		diag:        diag,
		stats:       stats,
	}
	date := s.today()
	if err := s.open(date, s.scanMaxSeq(date)+1); err != nil {
		s.clock.Stop()
		return nil, err
	}
	return s, nil
}

func (s *FileSink) today() string {
	return s.clock.CachedTime().Format("2006-01-02")
}

// scanMaxSeq returns the highest sequence number already on disk for
// the given date, or 0 when none exists.
func (s *FileSink) scanMaxSeq(date string) int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0
	}
	maxSeq := 0
	prefix := date + "_"
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".log"))
		if err == nil && n > maxSeq {
			maxSeq = n
		}
	}
	return maxSeq
}

func (s *FileSink) open(date string, seq int) error {
	path := filepath.Join(s.dir, fmt.Sprintf("%s_%d.log", date, seq))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file %q: %w", path, err)
	}
	s.file = f
	s.path = path
	s.size = 0
	s.date = date
	s.seq = seq
	return nil
}

// rotate switches to a new file. On failure the current file is kept
// and writing continues there until it fails too.
func (s *FileSink) rotate(date string, seq int) {
	old := s.file
	if err := s.open(date, seq); err != nil {
		s.stats.SinkErrors.Add(1)
		s.diag.reportOnce("log rotation", err)
		return
	}
	s.stats.Rotations.Add(1)
	if old != nil {
		old.Close()
	}
}

// Write appends p, rotating first when the date changed or the size cap
// would be exceeded. The error is also counted and reported; callers
// are free to ignore it.
func (s *FileSink) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if today := s.today(); today != s.date {
		s.rotate(today, 1)
	} else if s.size+int64(len(p)) > s.maxFileSize {
		s.rotate(s.date, s.seq+1)
	}
	if s.file == nil {
		return 0, fmt.Errorf("sink closed")
	}
	n, err := s.file.Write(p)
	s.size += int64(n)
	if err != nil {
		s.stats.SinkErrors.Add(1)
		s.diag.reportOnce("log write", err)
		return n, err
	}
	s.stats.BytesWritten.Add(int64(n))
	return n, nil
}

// Flush syncs file data (not metadata) to storage.
func (s *FileSink) Flush() {
	if s.file == nil {
		return
	}
	if err := fdatasync(s.file); err != nil {
		s.stats.SinkErrors.Add(1)
		s.diag.reportOnce("log sync", err)
	}
}

// Path returns the path of the file currently being written.
func (s *FileSink) Path() string { return s.path }

// Close flushes and closes the current file and stops the cached clock.
// Idempotent.
func (s *FileSink) Close() error {
	if s.file == nil {
		return nil
	}
	s.Flush()
	err := s.file.Close()
	s.file = nil
	s.clock.Stop()
	return err
}
