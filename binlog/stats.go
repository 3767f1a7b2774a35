package binlog

import "sync/atomic"

// Statistics holds operational counters for the backend.
type Statistics struct {
	Dropped      atomic.Int64 // records lost to full queues or encode failures
	Emitted      atomic.Int64 // records formatted into the output stage
	BytesWritten atomic.Int64 // bytes successfully written to the sink
	Rotations    atomic.Int64 // sink file rotations performed
	SinkErrors   atomic.Int64 // sink write/sync/rotation failures
}

// StatsSnapshot is a point-in-time copy of the counters.
type StatsSnapshot struct {
	Dropped      int64
	Emitted      int64
	BytesWritten int64
	Rotations    int64
	SinkErrors   int64
}

func (s *Statistics) snapshot() StatsSnapshot {
	return StatsSnapshot{
		Dropped:      s.Dropped.Load(),
		Emitted:      s.Emitted.Load(),
		BytesWritten: s.BytesWritten.Load(),
		Rotations:    s.Rotations.Load(),
		SinkErrors:   s.SinkErrors.Load(),
	}
}
