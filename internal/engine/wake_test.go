package engine

import "testing"

func TestWakeSignalDoesNotBlockWhenUnread(t *testing.T) {
	w := newWake()
	w.signal()
	w.signal()
	w.signal()

	select {
	case <-w.chanOf():
	default:
		t.Fatal("expected a pending signal after repeated signal()")
	}

	select {
	case <-w.chanOf():
		t.Fatal("expected signals to coalesce into a single pending wake")
	default:
	}
}

func TestWakeSignalDeliversToWaiter(t *testing.T) {
	w := newWake()
	done := make(chan struct{})

	go func() {
		<-w.chanOf()
		close(done)
	}()

	w.signal()
	<-done
}
