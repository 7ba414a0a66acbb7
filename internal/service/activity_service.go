// FILE: internal/service/activity_service.go
package service

import (
	"context"
	"fmt"

	"ai-learnpath-be/internal/pkg/logger"
	"ai-learnpath-be/pkg/events"
	pktNats "ai-learnpath-be/pkg/nats"
)

// ActivityService is the audit trail worker: it drains the domain event
// stream and writes each event to the activity log, so turn outcomes stay
// inspectable after the websocket stream is gone.
type ActivityService struct {
	subscriber *pktNats.Subscriber
	logger     logger.ILogger
}

func NewActivityService(sub *pktNats.Subscriber, log logger.ILogger) *ActivityService {
	return &ActivityService{
		subscriber: sub,
		logger:     log,
	}
}

// Start begins listening to the event bus.
func (s *ActivityService) Start() {
	err := s.subscriber.Subscribe("events.>", "activity-worker", s.handleEvent)
	if err != nil {
		s.logger.Error("ActivityService", "Failed to start activity subscriber", map[string]interface{}{"error": err})
		return
	}
	s.logger.Info("ActivityService", "Activity service started, listening to events.>", nil)
}

func (s *ActivityService) handleEvent(ctx context.Context, event events.Event) error {
	s.logger.Info("ActivityService", fmt.Sprintf("event %s", event.EventType()), event.Payload())
	return nil
}
