package httpapi

import (
	"strconv"
	"time"
)

const defaultThrottleWindow = time.Second

func parseInt64(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

func msToDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
