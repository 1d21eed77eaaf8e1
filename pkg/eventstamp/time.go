package eventstamp

import "time"

func msToTime(ms uint64) time.Time {
	return time.UnixMilli(int64(ms)).UTC()
}

func timeToMs(t time.Time) uint64 {
	return uint64(t.UnixMilli())
}

func parseTime(raw string) (time.Time, error) {
	return time.Parse("2006-01-02T15:04:05.000Z", raw)
}
