package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/atelierpress/be-print-dossiers/internal/platform/events"
	"github.com/atelierpress/be-print-dossiers/internal/workflow"
)

// NotificationPublisher hands workflow notification intents to NATS
// JetStream for the platform notification service to dispatch.
//
// Subject convention: notifications.print.<message_key>
// Message keys come from the workflow planner, e.g. dossier.needs_revision.
//
// All publish operations are non-fatal — errors are logged but never
// propagated, so notification failures never roll back a status change.
type NotificationPublisher struct {
	events *events.Client
	log    zerolog.Logger
}

// NotificationEvent is the JSON schema published to NATS.
type NotificationEvent struct {
	EventType    string   `json:"event_type"`
	ActorID      string   `json:"actor_id"`
	TargetRoles  []string `json:"target_roles"`
	ResourceType string   `json:"resource_type"`
	ResourceID   string   `json:"resource_id"`
	FromStatus   string   `json:"from_status"`
	ToStatus     string   `json:"to_status"`
	Comment      string   `json:"comment,omitempty"`
}

// NewNotificationPublisher creates a publisher backed by the given events
// client. A nil client disables publishing entirely.
func NewNotificationPublisher(events *events.Client, log zerolog.Logger) *NotificationPublisher {
	return &NotificationPublisher{events: events, log: log}
}

// PublishIntents publishes every intent planned for an accepted transition.
func (p *NotificationPublisher) PublishIntents(ctx context.Context, actorID, comment string, intents []workflow.NotificationIntent) {
	for _, intent := range intents {
		p.publish(ctx, actorID, comment, intent)
	}
}

func (p *NotificationPublisher) publish(ctx context.Context, actorID, comment string, intent workflow.NotificationIntent) {
	if p.events == nil {
		return
	}
	if len(intent.TargetRoles) == 0 {
		return
	}

	roles := make([]string, len(intent.TargetRoles))
	for i, r := range intent.TargetRoles {
		roles[i] = string(r)
	}

	event := &NotificationEvent{
		EventType:    intent.MessageKey,
		ActorID:      actorID,
		TargetRoles:  roles,
		ResourceType: "dossier",
		ResourceID:   intent.FolderID,
		FromStatus:   string(intent.FromStatus),
		ToStatus:     string(intent.ToStatus),
		Comment:      comment,
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.log.Warn().Err(err).Str("event_type", intent.MessageKey).Msg("notification: failed to marshal event")
		return
	}

	subject := fmt.Sprintf("notifications.print.%s", intent.MessageKey)
	if err := p.events.Publish(ctx, subject, data); err != nil {
		p.log.Warn().Err(err).
			Str("subject", subject).
			Str("dossier_id", intent.FolderID).
			Msg("notification: failed to publish NATS event (non-fatal)")
		return
	}

	p.log.Debug().
		Str("subject", subject).
		Str("dossier_id", intent.FolderID).
		Int("target_roles", len(roles)).
		Msg("notification: event published")
}
