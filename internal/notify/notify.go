package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrNoRecipients is returned when a Notifier has nowhere to send a message.
var ErrNoRecipients = errors.New("notify: no recipients configured")

// Sender delivers a formatted message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes messages to the structured log instead of delivering them.
type LogSender struct {
	Logger *zap.Logger
}

func (s LogSender) Send(_ context.Context, msg Message) error {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("calculation report",
		zap.String("from", msg.From),
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Text),
	)
	return nil
}

// Notifier formats calculation reports and hands them to a Sender.
type Notifier struct {
	sender Sender
	from   string
	to     []string
}

// New returns a Notifier addressing every message from from to the given recipients.
func New(sender Sender, from string, to []string) *Notifier {
	return &Notifier{sender: sender, from: from, to: to}
}

// NotifyCalculation formats r and sends it.
func (n *Notifier) NotifyCalculation(ctx context.Context, r Report) error {
	if len(n.to) == 0 {
		return ErrNoRecipients
	}

	msg, err := NewCalculationMessage(r)
	if err != nil {
		return err
	}
	msg.From = n.from
	msg.To = append([]string(nil), n.to...)

	if err := n.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send calculation report: %w", err)
	}
	return nil
}
