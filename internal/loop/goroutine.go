package loop

import (
	"bytes"
	"runtime"
	"strconv"
)

var goroutinePrefix = []byte("goroutine ")

// currentGoroutineID parses the running goroutine's id from its stack header
// ("goroutine N [running]:"). It returns 0 when the header cannot be parsed,
// which makes OnLoop report false.
func currentGoroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	return parseGoroutineID(buf[:n])
}

func parseGoroutineID(stack []byte) int64 {
	rest, ok := bytes.CutPrefix(stack, goroutinePrefix)
	if !ok {
		return 0
	}
	if i := bytes.IndexByte(rest, ' '); i >= 0 {
		rest = rest[:i]
	}
	id, err := strconv.ParseInt(string(rest), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
