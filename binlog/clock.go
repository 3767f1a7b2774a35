package binlog

import "time"

// clockBase anchors timestamps to the wall clock once, at startup.
var clockBase = time.Now()

// Timestamps are nanoseconds since the Unix epoch: the wall-clock
// reading taken at startup plus the monotonic time elapsed since then,
// measured with time.Now on every record. This is the portable
// strategy: no cycle counter calibration, and monotonic within a
// goroutine even when the wall clock is stepped.
func nowNanos() uint64 {
	return uint64(clockBase.UnixNano() + int64(time.Since(clockBase)))
}

// timeDigits holds "00".."99" as byte pairs for branch-free two-digit
// rendering.
var timeDigits [200]byte

func init() {
	for i := 0; i < 100; i++ {
		timeDigits[i*2] = byte('0' + i/10)
		timeDigits[i*2+1] = byte('0' + i%10)
	}
}

// appendClock renders ns-since-epoch as HH:MM:SS.mmm, wrapping at day
// boundaries (UTC) by reducing modulo 86400 seconds.
func appendClock(dst []byte, ns uint64) []byte {
	totalMs := ns / 1_000_000
	msec := totalMs % 1000
	daySec := (totalMs / 1000) % 86400

	hour := daySec / 3600
	minute := (daySec % 3600) / 60
	sec := daySec % 60

	dst = append(dst,
		timeDigits[hour*2], timeDigits[hour*2+1], ':',
		timeDigits[minute*2], timeDigits[minute*2+1], ':',
		timeDigits[sec*2], timeDigits[sec*2+1], '.')
	return append(dst,
		byte('0'+msec/100),
		timeDigits[(msec%100)*2], timeDigits[(msec%100)*2+1])
}
