package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/luxnode/internal/events"
)

// registerEventRoutes streams bus events to SSE clients.
func (s *Server) registerEventRoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Event Stream",
		Description: "Real-time samples, sample failures and device changes via Server-Sent Events",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"sample-taken":   events.SampleTakenEvent{},
		"sample-failed":  events.SampleFailedEvent{},
		"device-changed": events.DeviceChangedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 32)

		unsubTaken := events.SubscribeToChannel[events.SampleTakenEvent](s.eventBus, eventCh)
		defer unsubTaken()
		unsubFailed := events.SubscribeToChannel[events.SampleFailedEvent](s.eventBus, eventCh)
		defer unsubFailed()
		unsubDevices := events.SubscribeToChannel[events.DeviceChangedEvent](s.eventBus, eventCh)
		defer unsubDevices()

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
