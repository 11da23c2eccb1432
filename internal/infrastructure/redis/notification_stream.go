// Package redis comparte el stream de notificaciones entre instancias vía Redis Pub/Sub.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/inventory-ledger/internal/application/alerting"
	"github.com/jhoicas/inventory-ledger/internal/application/dto"
	"github.com/jhoicas/inventory-ledger/pkg/config"
	"github.com/jhoicas/inventory-ledger/pkg/logger"
)

var _ alerting.Publisher = (*NotificationStream)(nil)

// NotificationStream publica eventos de alertas en un canal y reenvía los recibidos a un sink local.
type NotificationStream struct {
	client  *redis.Client
	channel string
	log     *logger.Logger
}

// NewClient crea el cliente y verifica la conexión.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// NewNotificationStream construye el stream sobre un cliente existente (el caller lo cierra).
func NewNotificationStream(client *redis.Client, channel string, log *logger.Logger) *NotificationStream {
	return &NotificationStream{client: client, channel: channel, log: log.Component("redis_stream")}
}

// Publish serializa el evento como dto.NotificationEvent y lo publica en el canal.
func (s *NotificationStream) Publish(ctx context.Context, e alerting.Event) error {
	data, err := json.Marshal(dto.ToNotificationEvent(e.Type, e.Notification))
	if err != nil {
		return fmt.Errorf("redis: serializar evento: %w", err)
	}
	if err := s.client.Publish(ctx, s.channel, data).Err(); err != nil {
		return fmt.Errorf("redis: publicar en %s: %w", s.channel, err)
	}
	return nil
}

// Subscribe escucha el canal y entrega cada mensaje a sink hasta que ctx se cancele. Bloquea.
func (s *NotificationStream) Subscribe(ctx context.Context, sink func(payload []byte)) error {
	pubsub := s.client.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("redis: suscribir a %s: %w", s.channel, err)
	}
	s.log.Info().Str("channel", s.channel).Msg("suscrito al canal de notificaciones")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				s.log.Warn().Str("channel", s.channel).Msg("canal de notificaciones cerrado")
				return nil
			}
			var ev dto.NotificationEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				s.log.Error().Err(err).Str("payload", msg.Payload).Msg("mensaje de notificación inválido")
				continue
			}
			sink([]byte(msg.Payload))
		}
	}
}
