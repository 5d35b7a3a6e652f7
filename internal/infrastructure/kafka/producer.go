package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/zlog"

	"github.com/yokitheyo/avatarpipeline/internal/config"
	"github.com/yokitheyo/avatarpipeline/internal/domain"
	"github.com/yokitheyo/avatarpipeline/internal/retry"
)

var _ domain.Reconciler = (*Producer)(nil)

// Producer publishes reconcile tasks for profile updates that failed after upload.
type Producer struct {
	client *wbfkafka.Producer
	topic  string
}

func NewProducer(cfg *config.KafkaConfig) *Producer {
	client := wbfkafka.NewProducer(cfg.Brokers, cfg.Topic)
	zlog.Logger.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", cfg.Topic).
		Msg("Kafka producer initialized (wbf)")
	return &Producer{
		client: client,
		topic:  cfg.Topic,
	}
}

func (p *Producer) PublishReconcileTask(ctx context.Context, task domain.ReconcileTask) error {
	data, err := EncodeTask(task)
	if err != nil {
		zlog.Logger.Error().
			Err(err).
			Str("task_id", task.TaskID).
			Str("user_id", task.UserID).
			Msg("Failed to marshal reconcile task")
		return err
	}
	if err := p.client.SendWithRetry(ctx, retry.PublishStrategy, []byte(task.UserID), data); err != nil {
		zlog.Logger.Error().
			Err(err).
			Str("task_id", task.TaskID).
			Str("user_id", task.UserID).
			Str("topic", p.topic).
			Msg("Failed to send reconcile task with retry")
		return fmt.Errorf("publish reconcile task: %w", err)
	}
	zlog.Logger.Info().
		Str("task_id", task.TaskID).
		Str("user_id", task.UserID).
		Msg("Reconcile task sent to Kafka")
	return nil
}

func (p *Producer) Close() error {
	if err := p.client.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to close Kafka producer")
		return err
	}
	zlog.Logger.Info().Msg("Kafka producer closed successfully")
	return nil
}

// EncodeTask and DecodeTask define the wire format shared by producer and consumer.
func EncodeTask(task domain.ReconcileTask) ([]byte, error) {
	return json.Marshal(task)
}

func DecodeTask(data []byte) (*domain.ReconcileTask, error) {
	var task domain.ReconcileTask
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("decode reconcile task: %w", err)
	}
	if task.UserID == "" || task.AvatarURL == "" {
		return nil, fmt.Errorf("decode reconcile task: user_id and avatar_url are required")
	}
	return &task, nil
}
