package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/mediflow/scheduling-api/internal/config"
)

type Service interface {
	SendBookingConfirmation(ctx context.Context, to, patientName, doctorName, date, slotTime string) error
	SendCancellation(ctx context.Context, to, patientName, date, slotTime string) error
	SendReschedule(ctx context.Context, to, patientName, doctorName, date, slotTime string) error
}

type smtpService struct {
	dialer *gomail.Dialer
	from   string
}

func NewService(cfg config.SMTPConfig) Service {
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *smtpService) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	return s.dialer.DialAndSend(m)
}

func (s *smtpService) SendBookingConfirmation(_ context.Context, to, patientName, doctorName, date, slotTime string) error {
	body := fmt.Sprintf(
		"Dear %s,\n\nYour appointment with %s is confirmed for %s at %s.\n\nMediFlow Scheduling",
		patientName, doctorName, date, slotTime,
	)
	return s.send(to, "Appointment confirmed", body)
}

func (s *smtpService) SendCancellation(_ context.Context, to, patientName, date, slotTime string) error {
	body := fmt.Sprintf(
		"Dear %s,\n\nYour appointment on %s at %s has been cancelled.\n\nMediFlow Scheduling",
		patientName, date, slotTime,
	)
	return s.send(to, "Appointment cancelled", body)
}

func (s *smtpService) SendReschedule(_ context.Context, to, patientName, doctorName, date, slotTime string) error {
	body := fmt.Sprintf(
		"Dear %s,\n\nYour appointment with %s has been rescheduled to %s at %s.\n\nMediFlow Scheduling",
		patientName, doctorName, date, slotTime,
	)
	return s.send(to, "Appointment rescheduled", body)
}
