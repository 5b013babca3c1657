package events

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan SampleTakenEvent, 1)

	unsub := bus.Subscribe(func(e SampleTakenEvent) {
		received <- e
	})
	defer unsub()

	event := SampleTakenEvent{
		Source:     SourceCamera,
		Device:     "/dev/video0",
		Brightness: 128,
		Timestamp:  "2026-01-27T10:30:00Z",
	}
	bus.Publish(event)

	got := <-received
	if got.Device != event.Device || got.Brightness != event.Brightness {
		t.Errorf("Expected %+v, got %+v", event, got)
	}
}

func TestBus_MultipleSubscribers(_ *testing.T) {
	bus := New()
	received1 := make(chan DeviceChangedEvent, 1)
	received2 := make(chan DeviceChangedEvent, 1)

	unsub1 := bus.Subscribe(func(e DeviceChangedEvent) {
		received1 <- e
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(e DeviceChangedEvent) {
		received2 <- e
	})
	defer unsub2()

	bus.Publish(DeviceChangedEvent{Action: "add", DevicePath: "/dev/video0"})

	<-received1
	<-received2
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan SampleFailedEvent, 1)

	unsub := bus.Subscribe(func(e SampleFailedEvent) {
		received <- e
	})

	bus.Publish(SampleFailedEvent{Device: "/dev/video0"})
	<-received

	unsub()

	bus.Publish(SampleFailedEvent{Device: "/dev/video1"})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
		// Expected - no event
	}
}

func TestBus_TypeSafety(t *testing.T) {
	bus := New()

	takenReceived := make(chan bool, 1)
	failedReceived := make(chan bool, 1)

	unsub1 := bus.Subscribe(func(_ SampleTakenEvent) {
		takenReceived <- true
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(_ SampleFailedEvent) {
		failedReceived <- true
	})
	defer unsub2()

	bus.Publish(SampleTakenEvent{Source: SourceScreen})
	<-takenReceived

	select {
	case <-failedReceived:
		t.Fatal("Failure subscriber should NOT have received SampleTakenEvent")
	case <-time.After(10 * time.Millisecond):
	}

	bus.Publish(SampleFailedEvent{Source: SourceScreen})
	<-failedReceived

	select {
	case <-takenReceived:
		t.Fatal("Sample subscriber should NOT have received SampleFailedEvent")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_UnknownHandler(t *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(string) {})
	if unsub == nil {
		t.Fatal("expected no-op unsubscribe for unknown handler type")
	}
	unsub()
}

func TestBus_ThreadSafety(_ *testing.T) {
	bus := New()
	var wg sync.WaitGroup
	numGoroutines := 10
	eventsPerGoroutine := 100
	expected := numGoroutines * eventsPerGoroutine

	receivedCh := make(chan bool, expected)

	unsub := bus.Subscribe(func(_ DeviceChangedEvent) {
		receivedCh <- true
	})
	defer unsub()

	for range numGoroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range eventsPerGoroutine {
				bus.Publish(DeviceChangedEvent{
					Action:    "add",
					Timestamp: time.Now().Format(time.RFC3339),
				})
			}
		}()
	}

	wg.Wait()

	for range expected {
		<-receivedCh
	}
}

func TestBus_AllEventTypes(t *testing.T) {
	bus := New()

	tests := []struct {
		name  string
		event Event
	}{
		{"SampleTaken", SampleTakenEvent{Source: SourceCamera}},
		{"SampleFailed", SampleFailedEvent{Source: SourceCamera}},
		{"DeviceChanged", DeviceChangedEvent{Action: "remove"}},
		{"ConfigReloaded", ConfigReloadedEvent{Path: "/etc/luxnode/config.toml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(_ *testing.T) {
			received := make(chan Event, 1)

			var unsub func()
			switch tt.event.(type) {
			case SampleTakenEvent:
				unsub = bus.Subscribe(func(e SampleTakenEvent) { received <- e })
			case SampleFailedEvent:
				unsub = bus.Subscribe(func(e SampleFailedEvent) { received <- e })
			case DeviceChangedEvent:
				unsub = bus.Subscribe(func(e DeviceChangedEvent) { received <- e })
			case ConfigReloadedEvent:
				unsub = bus.Subscribe(func(e ConfigReloadedEvent) { received <- e })
			}
			defer unsub()

			bus.Publish(tt.event)
			<-received
		})
	}
}

func TestSampleTakenEventJSON(t *testing.T) {
	camera, err := json.Marshal(SampleTakenEvent{Source: SourceCamera, Brightness: 42})
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(camera, &fields); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if _, ok := fields["multiplier"]; ok {
		t.Error("camera samples should omit the multiplier")
	}
	if fields["brightness"] != float64(42) {
		t.Errorf("brightness = %v, want 42", fields["brightness"])
	}
}

func TestSubscribeToChannel(t *testing.T) {
	bus := New()
	ch := make(chan any, 10)

	unsub := SubscribeToChannel[SampleTakenEvent](bus, ch)
	defer unsub()

	event := SampleTakenEvent{Source: SourceScreen, Device: ":0", Brightness: 200}
	bus.Publish(event)

	received := <-ch
	sample, ok := received.(SampleTakenEvent)
	if !ok {
		t.Fatalf("Expected SampleTakenEvent, got %T", received)
	}
	if sample.Device != event.Device {
		t.Errorf("Expected device %s, got %s", event.Device, sample.Device)
	}
}

func TestSubscribeToChannel_NonBlocking(_ *testing.T) {
	bus := New()
	ch := make(chan any) // No buffer

	unsub := SubscribeToChannel[DeviceChangedEvent](bus, ch)
	defer unsub()

	done := make(chan bool, 1)
	go func() {
		bus.Publish(DeviceChangedEvent{Action: "add"})
		done <- true
	}()

	<-done
}
