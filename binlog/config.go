package binlog

import "fmt"

// Defaults applied by Validate.
const (
	defaultInitialQueueCapacity = 4096
	defaultMaxNodeCapacity      = 64 * 1024 * 1024
	defaultOutputBufferCapacity = 64 * 1024
	defaultMaxFileSize          = 100 * 1024 * 1024
	defaultFlushEvery           = 50_000
)

// Config holds the configuration for the logging backend.
type Config struct {
	// Dir is the log directory. Empty disables the file sink: formatted
	// output then stays in the staging buffer, which is the mode the
	// read-back test hooks use.
	Dir string

	// MinLevel is the minimum severity accepted by producers. Records
	// below it are filtered before any encoding work. Default: TRACE.
	MinLevel Level

	// InitialQueueCapacity is the byte capacity of a producer queue's
	// first ring (default: 4096). Rounded up to a power of two.
	InitialQueueCapacity int

	// MaxNodeCapacity caps the capacity of any single queue ring
	// (default: 64MB, must be a power of two). Once a producer's tail
	// ring is full at this size, further records are dropped.
	MaxNodeCapacity int

	// OutputBufferCapacity is the initial size of the staging buffer in
	// front of the file sink (default: 64KB).
	OutputBufferCapacity int

	// MaxFileSize is the rotation threshold per log file (default: 100MB).
	MaxFileSize int64

	// FlushEvery is the number of consumer iterations between flushes of
	// the staging buffer to disk (default: 50000).
	FlushEvery int

	// ConsumerCPU pins the consumer thread to the given CPU when >= 0.
	// Negative leaves scheduling to the OS.
	ConsumerCPU int
}

// DefaultConfig returns a configuration with baseline defaults. dir may
// be empty to disable the file sink.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:                  dir,
		MinLevel:             TRACE,
		InitialQueueCapacity: defaultInitialQueueCapacity,
		MaxNodeCapacity:      defaultMaxNodeCapacity,
		OutputBufferCapacity: defaultOutputBufferCapacity,
		MaxFileSize:          defaultMaxFileSize,
		FlushEvery:           defaultFlushEvery,
		ConsumerCPU:          -1,
	}
}

// Validate checks the configuration and applies defaults where needed.
func (c *Config) Validate() error {
	if c.MinLevel > FATAL {
		return fmt.Errorf("unknown MinLevel %d", c.MinLevel)
	}
	if c.InitialQueueCapacity <= 0 {
		c.InitialQueueCapacity = defaultInitialQueueCapacity
	}
	if c.MaxNodeCapacity <= 0 {
		c.MaxNodeCapacity = defaultMaxNodeCapacity
	}
	if uint64(c.MaxNodeCapacity) != nextPow2(uint64(c.MaxNodeCapacity)) {
		return fmt.Errorf("MaxNodeCapacity must be a power of two, got %d", c.MaxNodeCapacity)
	}
	if c.InitialQueueCapacity > c.MaxNodeCapacity {
		return fmt.Errorf("InitialQueueCapacity %d exceeds MaxNodeCapacity %d",
			c.InitialQueueCapacity, c.MaxNodeCapacity)
	}
	if c.OutputBufferCapacity <= 0 {
		c.OutputBufferCapacity = defaultOutputBufferCapacity
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = defaultMaxFileSize
	}
	if c.FlushEvery <= 0 {
		c.FlushEvery = defaultFlushEvery
	}
	return nil
}
