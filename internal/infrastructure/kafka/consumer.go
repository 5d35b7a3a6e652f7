package kafka

import (
	"context"
	"time"

	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/zlog"

	"github.com/yokitheyo/avatarpipeline/internal/config"
	"github.com/yokitheyo/avatarpipeline/internal/domain"
	"github.com/yokitheyo/avatarpipeline/internal/retry"
)

type MessageHandler func(ctx context.Context, task *domain.ReconcileTask) error

type Consumer struct {
	client  *wbfkafka.Consumer
	handler MessageHandler
	topic   string
}

func NewConsumer(cfg *config.KafkaConfig, handler MessageHandler) (*Consumer, error) {
	client := wbfkafka.NewConsumer(cfg.Brokers, cfg.Topic, cfg.GroupID)

	zlog.Logger.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", cfg.Topic).
		Str("group_id", cfg.GroupID).
		Msg("Kafka consumer initialized (wbf)")

	return &Consumer{
		client:  client,
		handler: handler,
		topic:   cfg.Topic,
	}, nil
}

// Start fetches until ctx is done. Undecodable messages are committed and dropped; a
// failing handler leaves the message uncommitted so it is redelivered.
func (c *Consumer) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			zlog.Logger.Info().Msg("Kafka consumer stopped")
			return nil
		default:
		}

		msg, err := c.client.FetchWithRetry(ctx, retry.PublishStrategy)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			zlog.Logger.Error().Err(err).Msg("Failed to fetch Kafka message")
			time.Sleep(time.Second)
			continue
		}

		task, err := DecodeTask(msg.Value)
		if err != nil {
			zlog.Logger.Error().
				Err(err).
				Bytes("msg", msg.Value).
				Msg("Dropping invalid reconcile task")
			if err := c.client.Commit(ctx, msg); err != nil {
				zlog.Logger.Error().Err(err).Msg("Failed to commit invalid message")
			}
			continue
		}

		zlog.Logger.Info().
			Str("task_id", task.TaskID).
			Str("user_id", task.UserID).
			Msg("Received reconcile task")

		if err := c.handler(ctx, task); err != nil {
			zlog.Logger.Error().
				Err(err).
				Str("task_id", task.TaskID).
				Str("user_id", task.UserID).
				Msg("Reconcile task failed")
			continue
		}

		if err := c.client.Commit(ctx, msg); err != nil {
			zlog.Logger.Error().
				Err(err).
				Str("task_id", task.TaskID).
				Msg("Failed to commit message")
			continue
		}

		zlog.Logger.Info().
			Str("task_id", task.TaskID).
			Str("user_id", task.UserID).
			Msg("Reconcile task processed and committed")
	}
}

func (c *Consumer) Close() error {
	if err := c.client.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to close Kafka consumer")
		return err
	}
	zlog.Logger.Info().Msg("Kafka consumer closed successfully")
	return nil
}
