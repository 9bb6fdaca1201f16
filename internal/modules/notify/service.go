// README: Operator push notifications over FCM topics for monitor actions.
package notify

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"

	"fleetops/internal/logger"
	"fleetops/internal/modules/dispatch"
	"fleetops/internal/modules/fleet"
	"fleetops/internal/types"
)

var ErrNoTopic = errors.New("notification topic is required")

// Sender is the piece of *messaging.Client the service uses.
type Sender interface {
	Send(ctx context.Context, msg *messaging.Message) (string, error)
}

type Service struct {
	sender Sender
	topic  string
	log    *zap.Logger
}

func NewService(sender Sender, topic string, log *zap.Logger) (*Service, error) {
	if topic == "" {
		return nil, ErrNoTopic
	}
	return &Service{sender: sender, topic: topic, log: logger.OrNop(log)}, nil
}

// NewFCM publishes to topic through app's messaging client.
func NewFCM(ctx context.Context, app *firebase.App, topic string, log *zap.Logger) (*Service, error) {
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase app.Messaging: %w", err)
	}
	return NewService(client, topic, log)
}

func (s *Service) MonitorAction(ctx context.Context, driverID types.ID, ride fleet.Ride, out dispatch.Outcome) error {
	msg := monitorMessage(s.topic, driverID, ride, out)
	id, err := s.sender.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("send to topic %s: %w", s.topic, err)
	}
	s.log.Debug("monitor notification sent", zap.Int64("ride_id", int64(ride.ID)), zap.String("message_id", id))
	return nil
}

func monitorMessage(topic string, driverID types.ID, ride fleet.Ride, out dispatch.Outcome) *messaging.Message {
	title := fmt.Sprintf("Ride %d revived", ride.ID)
	body := fmt.Sprintf("Driver %d, pickup %s", driverID, ride.Pickup())
	if !out.OK() {
		title = fmt.Sprintf("Ride %d revive failed", ride.ID)
		body = out.Detail
	}
	return &messaging.Message{
		Topic: topic,
		Data: map[string]string{
			"type":       "monitor_revive",
			"ride_id":    ride.ID.String(),
			"driver_id":  driverID.String(),
			"pickup_at":  ride.Pickup(),
			"status":     string(out.Status),
			"error_kind": string(out.ErrorKind),
		},
		Notification: &messaging.Notification{Title: title, Body: body},
		Android:      &messaging.AndroidConfig{Priority: "high"},
	}
}
