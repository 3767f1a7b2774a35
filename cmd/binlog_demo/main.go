// binlog_demo exercises the logging core end to end: several producer
// goroutines log a mixed workload through a started backend, the
// backend is stopped and closed, and the statistics snapshot is
// printed.
package main

import (
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/neeharmavuduru/binlog/binlog"
)

var (
	stStart   = binlog.MustStatement(binlog.INFO, "worker {} starting")
	stRequest = binlog.MustStatement(binlog.DEBUG, "worker {} handled request {} in {}ms")
	stWarn    = binlog.MustStatement(binlog.WARN, "worker {} queue depth {} above threshold")
	stDone    = binlog.MustStatement(binlog.INFO, "worker {} done, status={}")
)

var statusOK = binlog.Pin("ok")

func main() {
	dir := flag.String("dir", "./logs", "log directory")
	workers := flag.Int("workers", 4, "producer goroutines")
	records := flag.Int("records", 100000, "records per producer")
	cpu := flag.Int("cpu", -1, "consumer CPU pin (-1 = unpinned)")
	flag.Parse()

	cfg := binlog.DefaultConfig(*dir)
	cfg.ConsumerCPU = *cpu
	backend, err := binlog.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "binlog_demo: %v\n", err)
		os.Exit(1)
	}
	backend.Start()

	start := time.Now()
	var wg sync.WaitGroup
	for w := 0; w < *workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p := backend.Producer()
			defer p.Close()

			p.Log(stStart, binlog.Int(id))
			for i := 0; i < *records; i++ {
				p.Log(stRequest, binlog.Int(id), binlog.Int(i), binlog.Float64(float64(i%7)*0.25))
				if i%1000 == 999 {
					p.Log(stWarn, binlog.Int(id), binlog.Int(i%128))
				}
			}
			p.Log(stDone, binlog.Int(id), binlog.Static(statusOK))
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	backend.Stop()
	if err := backend.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "binlog_demo: close: %v\n", err)
	}

	stats := backend.Stats()
	total := *workers * *records
	fmt.Printf("logged %d records from %d workers in %v (%.0f records/s)\n",
		total, *workers, elapsed, float64(total)/elapsed.Seconds())
	fmt.Printf("emitted=%d dropped=%d bytes=%d rotations=%d sinkErrors=%d\n",
		stats.Emitted, stats.Dropped, stats.BytesWritten, stats.Rotations, stats.SinkErrors)
}
