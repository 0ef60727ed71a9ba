package degraded

import (
	"testing"
	"time"
)

func TestErrorRate(t *testing.T) {
	Reset()
	defer Reset()

	RecordError()
	RecordError()
	RecordSuccess()

	errs, total := ErrorRate(time.Minute)
	if errs != 2 {
		t.Errorf("errors = %d, want 2", errs)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
}

func TestErrorRate_EmptyWindow(t *testing.T) {
	Reset()

	errs, total := ErrorRate(time.Minute)
	if errs != 0 || total != 0 {
		t.Errorf("ErrorRate = (%d, %d), want (0, 0)", errs, total)
	}
}
