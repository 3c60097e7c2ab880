package session

import "testing"

func TestSubscriberSetBroadcastDropsWhenFull(t *testing.T) {
	set := newSubscriberSet()
	sub := newSubscriber("a")
	set.add(sub)

	// Fill the subscriber's buffer (capacity 2) without draining it.
	delivered, dropped := set.broadcast([]byte("frame1"))
	if delivered != 1 || dropped != 0 {
		t.Fatalf("expected 1 delivered 0 dropped, got %d/%d", delivered, dropped)
	}
	delivered, dropped = set.broadcast([]byte("frame2"))
	if delivered != 1 || dropped != 0 {
		t.Fatalf("expected 1 delivered 0 dropped, got %d/%d", delivered, dropped)
	}
	// Buffer now full; third frame should be dropped rather than block.
	delivered, dropped = set.broadcast([]byte("frame3"))
	if delivered != 0 || dropped != 1 {
		t.Fatalf("expected 0 delivered 1 dropped, got %d/%d", delivered, dropped)
	}
}

func TestSubscriberSetRemoveClosesDone(t *testing.T) {
	set := newSubscriberSet()
	sub := newSubscriber("a")
	set.add(sub)
	set.remove("a")

	select {
	case <-sub.Done():
	default:
		t.Fatal("expected Done() to be closed after remove")
	}
	if set.count() != 0 {
		t.Fatalf("expected count 0 after remove, got %d", set.count())
	}
}

func TestSubscriberSetCloseAll(t *testing.T) {
	set := newSubscriberSet()
	set.add(newSubscriber("a"))
	set.add(newSubscriber("b"))
	set.closeAll()
	if set.count() != 0 {
		t.Fatalf("expected count 0 after closeAll, got %d", set.count())
	}
}
