// Package worker hosts the consumers the worker binary runs alongside the
// outbox processor.
package worker

import (
	"context"
	"encoding/json"

	"github.com/mediflow/scheduling-api/internal/email"
	"github.com/mediflow/scheduling-api/internal/model"
	"github.com/mediflow/scheduling-api/internal/repository"
	"github.com/mediflow/scheduling-api/pkg/logger"
	"github.com/mediflow/scheduling-api/pkg/messaging"
)

// Notifier subscribes to appointment events and emails the patient.
// Notification failures are logged, never retried into the booking path.
type Notifier struct {
	broker messaging.Broker
	users  repository.UserRepository
	email  email.Service
	logger *logger.Logger
}

func NewNotifier(
	broker messaging.Broker,
	users repository.UserRepository,
	email email.Service,
	logger *logger.Logger,
) *Notifier {
	return &Notifier{
		broker: broker,
		users:  users,
		email:  email,
		logger: logger,
	}
}

func (n *Notifier) Start(ctx context.Context) error {
	channels := []string{
		model.EventAppointmentBooked,
		model.EventAppointmentCancelled,
		model.EventAppointmentRescheduled,
	}
	for _, channel := range channels {
		messages, err := n.broker.Subscribe(ctx, channel)
		if err != nil {
			return err
		}
		go n.consume(ctx, channel, messages)
	}
	n.logger.Info("Notifier started", "channels", channels)
	return nil
}

func (n *Notifier) consume(ctx context.Context, channel string, messages <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-messages:
			if !ok {
				return
			}
			if err := n.handle(ctx, channel, raw); err != nil {
				n.logger.Error(err, "Failed to send notification", "channel", channel)
			}
		}
	}
}

func (n *Notifier) handle(ctx context.Context, channel string, raw []byte) error {
	var payload model.AppointmentEventPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}

	patient, err := n.users.Get(ctx, payload.PatientID)
	if err != nil {
		return err
	}
	doctor, err := n.users.Get(ctx, payload.DoctorID)
	if err != nil {
		return err
	}

	switch channel {
	case model.EventAppointmentBooked:
		return n.email.SendBookingConfirmation(ctx, patient.Email, patient.FullName(), doctor.FullName(), payload.Date, payload.Time)
	case model.EventAppointmentCancelled:
		return n.email.SendCancellation(ctx, patient.Email, patient.FullName(), payload.Date, payload.Time)
	case model.EventAppointmentRescheduled:
		return n.email.SendReschedule(ctx, patient.Email, patient.FullName(), doctor.FullName(), payload.Date, payload.Time)
	}
	return nil
}
