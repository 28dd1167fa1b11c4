package domain

import (
	"testing"
	"time"
)

func testDate(t *testing.T) time.Time {
	t.Helper()
	return time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
}
