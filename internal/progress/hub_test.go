package progress

import (
	"testing"
	"time"
)

func TestNotifyReachesSubscriber(t *testing.T) {
	h := NewHub(nil, nil)
	ch, cancel := h.Subscribe("job-1")
	defer cancel()

	row := 0
	h.Notify(Event{Type: EventAddressCompleted, JobID: "job-1", RowIndex: &row, Processed: 1, Total: 2})

	select {
	case ev := <-ch:
		if ev.Type != EventAddressCompleted || ev.Processed != 1 {
			t.Errorf("event = %+v", ev)
		}
		if ev.Timestamp.IsZero() {
			t.Error("Notify must stamp the event")
		}
	case <-time.After(time.Second):
		t.Fatal("event never delivered")
	}
}

func TestNotifyIsScopedToJob(t *testing.T) {
	h := NewHub(nil, nil)
	ch, cancel := h.Subscribe("job-a")
	defer cancel()

	h.Notify(Event{Type: EventJobStarted, JobID: "job-b"})

	select {
	case ev := <-ch:
		t.Fatalf("subscriber of job-a got %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNotifyWithoutSubscribersDoesNotBlock(t *testing.T) {
	h := NewHub(nil, nil)
	done := make(chan struct{})
	go func() {
		h.Notify(Event{Type: EventJobStarted, JobID: "nobody-listens"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked with no subscribers")
	}
}

func TestSlowSubscriberDropsInsteadOfStalling(t *testing.T) {
	h := NewHub(nil, nil)
	ch, cancel := h.Subscribe("job-1")
	defer cancel()

	// Overfill the buffered channel without draining.
	for i := 0; i < 40; i++ {
		h.Notify(Event{Type: EventAddressCompleted, JobID: "job-1", Processed: i})
	}

	if n := len(ch); n != cap(ch) {
		t.Errorf("buffered = %d, want a full channel of %d with the rest dropped", n, cap(ch))
	}
}

func TestCancelClosesChannel(t *testing.T) {
	h := NewHub(nil, nil)
	ch, cancel := h.Subscribe("job-1")
	cancel()

	if _, open := <-ch; open {
		t.Error("cancel must close the subscription channel")
	}

	// Events after cancel go nowhere.
	h.Notify(Event{Type: EventJobCompleted, JobID: "job-1"})
}

func TestMultipleSubscribersEachReceive(t *testing.T) {
	h := NewHub(nil, nil)
	ch1, cancel1 := h.Subscribe("job-1")
	defer cancel1()
	ch2, cancel2 := h.Subscribe("job-1")
	defer cancel2()

	h.Notify(Event{Type: EventJobCompleted, JobID: "job-1"})

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			if !ev.Type.Terminal() {
				t.Errorf("subscriber %d got non-terminal %s", i, ev.Type)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d never got the event", i)
		}
	}
}
