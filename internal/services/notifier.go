package services

import (
	"context"

	"scoreboard/internal/amqp"
	"scoreboard/internal/core"
)

// Notifier is told about every confirmed rollover.
type Notifier interface {
	NotifyRollover(ctx context.Context, kidNames []string, res core.RolloverResult, revision uint64) error
}

// NopNotifier drops notices.
type NopNotifier struct{}

func (NopNotifier) NotifyRollover(context.Context, []string, core.RolloverResult, uint64) error {
	return nil
}

// Publisher is the part of the AMQP client the notifier uses.
type Publisher interface {
	PublishRolloverNotice(ctx context.Context, notice *amqp.RolloverNotice) error
}

// AMQPNotifier publishes rollover notices to the message broker.
type AMQPNotifier struct {
	publisher Publisher
}

func NewAMQPNotifier(p Publisher) *AMQPNotifier {
	return &AMQPNotifier{publisher: p}
}

func (n *AMQPNotifier) NotifyRollover(ctx context.Context, kidNames []string, res core.RolloverResult, revision uint64) error {
	if n.publisher == nil {
		return nil
	}
	return n.publisher.PublishRolloverNotice(ctx, amqp.NewRolloverNotice(kidNames, res, revision))
}

// Confirmer gates destructive operations behind an explicit yes.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) { return f(ctx, prompt) }

// Confirmed answers every prompt with the given decision.
func Confirmed(yes bool) Confirmer {
	return ConfirmFunc(func(context.Context, string) (bool, error) { return yes, nil })
}
