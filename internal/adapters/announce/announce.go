// Package announce delivers game messages to channels and players.
//
// The engine only needs Send; the real chat transport lives outside this
// module. LogSender writes announcements to the log, Hub streams them to
// websocket subscribers, and Multi fans out to several senders.
package announce

import (
	"context"
	"errors"

	"github.com/okian/duckhunt/pkg/logger"
)

// Sender delivers text to a channel or nick.
type Sender interface {
	Send(ctx context.Context, target, text string) error
}

// LogSender logs every announcement at info level.
type LogSender struct {
	logger logger.Logger
}

// NewLogSender returns a Sender writing to l.
func NewLogSender(l logger.Logger) *LogSender {
	if l == nil {
		l = logger.Nop()
	}
	return &LogSender{logger: l}
}

func (s *LogSender) Send(ctx context.Context, target, text string) error {
	s.logger.Info(ctx, text, logger.String("target", target))
	return nil
}

type multi []Sender

// Multi sends to every sender and joins their errors.
func Multi(senders ...Sender) Sender {
	out := make(multi, 0, len(senders))
	for _, s := range senders {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multi) Send(ctx context.Context, target, text string) error {
	var errs []error
	for _, s := range m {
		if err := s.Send(ctx, target, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
