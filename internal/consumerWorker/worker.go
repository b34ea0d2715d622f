package consumerWorker

import (
	"context"
	"encoding/json"

	"github.com/wb-go/wbf/zlog"

	"eventadmin/internal/dto"
	"eventadmin/internal/mailer"
	"eventadmin/internal/rabbit"
)

// Reader consumes registration notification messages and emails the
// participant. Malformed messages are nacked back onto the queue.
type Reader struct {
	RMQ    *rabbit.Client
	done   chan struct{}
	cancel context.CancelFunc
}

func NewReader(rmq *rabbit.Client) *Reader {
	return &Reader{
		RMQ:  rmq,
		done: make(chan struct{}),
	}
}

func (r *Reader) Start(ctx context.Context) {
	cctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	zlog.Logger.Info().Msg("registration notifier started")

	go func() {
		defer close(r.done)

		handler := func(body []byte) error {
			var msg dto.RegistrationNotifyMessage
			if err := json.Unmarshal(body, &msg); err != nil {
				zlog.Logger.Error().
					Err(err).
					Msgf("Failed to unmarshal message: %s", string(body))
				return err
			}

			zlog.Logger.Info().
				Str("registration_id", msg.RegistrationID).
				Str("event_id", msg.EventID).
				Msg("received registration notification")

			if msg.Email == "" {
				zlog.Logger.Info().
					Str("registration_id", msg.RegistrationID).
					Msg("no registration email, skipping notification")
				return nil
			}

			status := "registered"
			if msg.Approved {
				status = "approved"
			}

			if err := mailer.SendRegistrationEmail(
				&zlog.Logger,
				msg.EventTitle,
				status,
				msg.Email,
			); err != nil {
				zlog.Logger.Warn().
					Err(err).
					Str("registration_id", msg.RegistrationID).
					Msg("failed to send registration email")
			}

			return nil
		}

		if err := r.RMQ.Consume(handler); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to start consuming")
			return
		}

		<-cctx.Done()
		zlog.Logger.Info().Msg("registration notifier stopped by context")
	}()
}

func (r *Reader) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}
