package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	TaskCaptureCleanup = "capture.cleanup"
	TaskMediaPurge     = "media.purge"
	TaskDraftSweep     = "draft.sweep"
)

// Task is the payload carried by one stream entry.
type Task struct {
	Type   string `json:"type"`
	UserID string `json:"userId,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func (t Task) values() map[string]any {
	values := map[string]any{"type": t.Type}
	if t.UserID != "" {
		values["userId"] = t.UserID
	}
	if t.Reason != "" {
		values["reason"] = t.Reason
	}
	return values
}

// DecodeTask reads a task back out of stream entry values.
func DecodeTask(values map[string]interface{}) (Task, error) {
	raw, err := json.Marshal(values)
	if err != nil {
		return Task{}, err
	}
	var task Task
	if err := json.Unmarshal(raw, &task); err != nil {
		return Task{}, err
	}
	if task.Type == "" {
		return Task{}, fmt.Errorf("task type missing")
	}
	return task, nil
}

// Producer appends tasks to the worker stream.
type Producer struct {
	client redis.UniversalClient
	stream string
}

func NewProducer(client redis.UniversalClient, stream string) *Producer {
	return &Producer{client: client, stream: stream}
}

func (p *Producer) Enqueue(ctx context.Context, task Task) (string, error) {
	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: task.values(),
	}).Result()
	if err != nil {
		return "", fmt.Errorf("enqueue %s: %w", task.Type, err)
	}
	return id, nil
}
