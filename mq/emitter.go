package mq

import (
	"context"
	"encoding/json"
	"fmt"

	"bookit/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const BookingChannel = "booking-events"

// Emitter publishes booking events to redis so every instance can relay
// them to its websocket clients.
type Emitter struct {
	conn   *redis.Client
	logger *zap.Logger
}

func NewEmitter(conn *redis.Client, logger *zap.Logger) *Emitter {
	return &Emitter{conn: conn, logger: logger}
}

func (e *Emitter) Emit(ctx context.Context, ev models.BookingEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal booking event: %w", err)
	}
	if err := e.conn.Publish(ctx, BookingChannel, data).Err(); err != nil {
		return fmt.Errorf("publish booking event: %w", err)
	}
	e.logger.Debug("booking event published",
		zap.String("type", ev.Type),
		zap.String("booking_id", ev.Booking.ID))
	return nil
}

// Run relays events from the booking channel to deliver until ctx is done.
func Run(ctx context.Context, conn *redis.Client, logger *zap.Logger, deliver func(models.BookingEvent)) {
	sub := conn.Subscribe(ctx, BookingChannel)
	defer sub.Close()
	ch := sub.Channel()

	logger.Info("listening for booking events", zap.String("channel", BookingChannel))

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev models.BookingEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				logger.Warn("dropping malformed booking event", zap.Error(err))
				continue
			}
			deliver(ev)
		}
	}
}
