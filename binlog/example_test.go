package binlog_test

import (
	"fmt"
	"os"

	"github.com/neeharmavuduru/binlog/binlog"
)

var stReady = binlog.MustStatement(binlog.INFO, "cache warmed: {} entries in {}ms")

func Example() {
	dir, _ := os.MkdirTemp("", "binlog-example")
	defer os.RemoveAll(dir)

	backend, err := binlog.New(binlog.DefaultConfig(dir))
	if err != nil {
		fmt.Println("init:", err)
		return
	}
	backend.Start()

	p := backend.Producer()
	p.Log(stReady, binlog.Int(1024), binlog.Float64(12.5))
	p.Close()

	backend.Stop()
	if err := backend.Close(); err != nil {
		fmt.Println("close:", err)
		return
	}

	stats := backend.Stats()
	fmt.Printf("emitted=%d dropped=%d\n", stats.Emitted, stats.Dropped)
	// Output: emitted=1 dropped=0
}

func ExampleProducer_Log() {
	cfg := binlog.DefaultConfig("") // no sink: output stays in memory
	backend, _ := binlog.New(cfg)

	done := binlog.MustStatement(binlog.WARN, "retry {} of {} for job {}")
	job := binlog.Pin("reindex") // pinned once, referenced by pointer thereafter

	p := backend.Producer()
	p.Log(done, binlog.Int(2), binlog.Int(5), binlog.Static(job))
	p.Close()

	backend.Start()
	backend.Stop()

	buf := make([]byte, 256)
	n := backend.ReadOutput(buf)
	line := string(buf[:n])
	// Strip the timestamp; it changes every run.
	fmt.Println(line[:7] + line[20:])
	// Output: [WARN] retry 2 of 5 for job reindex
}
