package events

import (
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := NewBus(10)
	defer bus.Close()

	ch := bus.Subscribe(EventTransferProgress)

	bus.Publish(&TransferEvent{
		BaseEvent:  BaseEvent{EventType: EventTransferProgress, Time: time.Now()},
		TaskID:     "task-1",
		Kind:       "upload_file",
		Name:       "data.bin",
		BytesDone:  512,
		BytesTotal: 1024,
	})

	select {
	case received := <-ch:
		ev, ok := received.(*TransferEvent)
		if !ok {
			t.Fatal("Expected TransferEvent")
		}
		if ev.TaskID != "task-1" {
			t.Errorf("Expected task ID 'task-1', got %q", ev.TaskID)
		}
		if ev.BytesDone != 512 {
			t.Errorf("Expected BytesDone 512, got %d", ev.BytesDone)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for event")
	}
}

func TestBus_SubscribeAllReceivesEveryType(t *testing.T) {
	bus := NewBus(10)
	defer bus.Close()

	ch := bus.SubscribeAll()

	bus.PublishLog(WarnLevel, "cleanup failed", "task-2", nil)
	bus.Publish(&TransferEvent{
		BaseEvent: BaseEvent{EventType: EventTransferCompleted, Time: time.Now()},
		TaskID:    "task-2",
	})

	types := make([]EventType, 0, 2)
	for i := 0; i < 2; i++ {
		select {
		case ev := <-ch:
			types = append(types, ev.Type())
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("Timeout waiting for event %d", i)
		}
	}

	if types[0] != EventLog || types[1] != EventTransferCompleted {
		t.Errorf("Unexpected event order: %v", types)
	}
}

func TestBus_NonBlockingPublishDropsWhenFull(t *testing.T) {
	bus := NewBus(1)
	defer bus.Close()

	_ = bus.Subscribe(EventTransferProgress)

	// Buffer size 1: second publish must drop, not block.
	for i := 0; i < 3; i++ {
		bus.Publish(&TransferEvent{
			BaseEvent: BaseEvent{EventType: EventTransferProgress, Time: time.Now()},
			TaskID:    "task-3",
		})
	}

	if bus.DroppedEventCount() != 2 {
		t.Errorf("Expected 2 dropped events, got %d", bus.DroppedEventCount())
	}
}

func TestBus_TerminalEventDisplacesOldest(t *testing.T) {
	bus := NewBus(1)
	defer bus.Close()

	ch := bus.SubscribeAll()

	// Fill the buffer, then publish a terminal event before the subscriber
	// drains anything.
	bus.Publish(&TransferEvent{
		BaseEvent: BaseEvent{EventType: EventTransferProgress, Time: time.Now()},
		TaskID:    "task-4",
	})
	bus.Publish(&TransferEvent{
		BaseEvent: BaseEvent{EventType: EventTransferCompleted, Time: time.Now()},
		TaskID:    "task-4",
	})

	select {
	case ev := <-ch:
		if ev.Type() != EventTransferCompleted {
			t.Errorf("Expected completed event, got %v", ev.Type())
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for terminal event")
	}
	if bus.DroppedEventCount() != 1 {
		t.Errorf("Expected 1 displaced event, got %d", bus.DroppedEventCount())
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(10)
	defer bus.Close()

	ch := bus.Subscribe(EventTransferQueued)
	bus.Unsubscribe(EventTransferQueued, ch)

	bus.Publish(&TransferEvent{
		BaseEvent: BaseEvent{EventType: EventTransferQueued, Time: time.Now()},
	})

	select {
	case ev := <-ch:
		t.Errorf("Expected no event after unsubscribe, got %v", ev.Type())
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_PublishAfterCloseIsNoop(t *testing.T) {
	bus := NewBus(10)
	ch := bus.SubscribeAll()
	bus.Close()

	bus.Publish(&TransferEvent{
		BaseEvent: BaseEvent{EventType: EventTransferStarted, Time: time.Now()},
	})

	if _, open := <-ch; open {
		t.Error("Expected channel closed after bus Close")
	}
}
