package events

import (
	"testing"
	"time"
)

func TestPublishReachesSubscribers(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventScanCompleted)

	bus.Publish(EventScanCompleted, Payload{"locations": 3})

	select {
	case payload := <-sub:
		if payload["locations"] != 3 {
			t.Fatalf("unexpected payload: %+v", payload)
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestPublishSkipsOtherEventTypes(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventIssueDetected)

	bus.Publish(EventScanCompleted, Payload{})

	select {
	case payload := <-sub:
		t.Fatalf("unexpected delivery: %+v", payload)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventReportSent)
	bus.Unsubscribe(EventReportSent, sub)

	if _, open := <-sub; open {
		t.Fatal("channel must be closed after unsubscribe")
	}

	// Publishing after unsubscribe must not panic.
	bus.Publish(EventReportSent, Payload{})
}

func TestPublishDropsWhenSubscriberFull(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventLocationScanned)

	for i := 0; i < 20; i++ {
		bus.Publish(EventLocationScanned, Payload{"n": i})
	}

	// The buffer holds 8; the rest are dropped without blocking.
	count := 0
	for {
		select {
		case <-sub:
			count++
			continue
		default:
		}
		break
	}
	if count != 8 {
		t.Fatalf("expected 8 buffered events, got %d", count)
	}
}
