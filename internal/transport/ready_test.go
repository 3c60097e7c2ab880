package transport

import "testing"

func TestReadyChannelOfferDropsWithoutBlockingAtCapacity(t *testing.T) {
	r := NewReadyChannel(3)

	for i := 0; i < 3; i++ {
		r.Offer(i)
	}
	// The channel is now full; this Offer must not block and must not evict
	// index 0, the oldest queued entry.
	done := make(chan struct{})
	go func() {
		r.Offer(99)
		close(done)
	}()
	select {
	case <-done:
	default:
	}
	<-done

	first, err := r.Next(nil)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if first != 0 {
		t.Fatalf("expected the oldest queued index 0 to survive, got %d", first)
	}
}

func TestReadyChannelNextUnblocksOnDone(t *testing.T) {
	r := NewReadyChannel(1)
	done := make(chan struct{})
	close(done)

	if _, err := r.Next(done); err == nil {
		t.Fatal("expected an error once done fires with nothing queued")
	}
}
