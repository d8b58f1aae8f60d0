// Package notify fans order activity out to the kitchen display and the
// owner's Telegram chat. Delivery runs on the background worker; the API
// process only enqueues.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mengleangdeaun/foodie-sub002/internal/events"
	"github.com/mengleangdeaun/foodie-sub002/internal/queue"
)

// TaskNotifier translates domain events into queued notification tasks. It
// never blocks order placement on delivery; only the enqueue itself can fail.
type TaskNotifier struct {
	Enqueuer *queue.Enqueuer
	Kitchen  bool
	Telegram bool
}

// Notify implements events.Notifier.
func (n *TaskNotifier) Notify(ctx context.Context, event events.Event) error {
	if n == nil || n.Enqueuer == nil {
		return nil
	}
	switch event.Topic {
	case events.TopicOrderCreated:
		return n.onOrderCreated(ctx, event)
	case events.TopicOrderStatusChanged:
		return n.onStatusChanged(ctx, event)
	default:
		return nil
	}
}

type orderEventPayload struct {
	OrderID  string `json:"orderId"`
	BranchID string `json:"branchId"`
	Type     string `json:"type"`
	Total    string `json:"total"`
	Items    int    `json:"items"`
	Status   string `json:"status"`
}

func (n *TaskNotifier) onOrderCreated(ctx context.Context, event events.Event) error {
	var payload orderEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("notify: decode %s payload: %w", event.Topic, err)
	}
	var joined error
	if n.Kitchen {
		task, err := queue.NewKitchenAlertTask(queue.KitchenAlertPayload{
			OrderID:   payload.OrderID,
			BranchID:  payload.BranchID,
			OrderType: payload.Type,
			Items:     payload.Items,
		})
		if err == nil {
			_, err = n.Enqueuer.Enqueue(ctx, task)
		}
		if err != nil {
			joined = errors.Join(joined, fmt.Errorf("notify: enqueue kitchen alert: %w", err))
		}
	}
	if n.Telegram {
		text := fmt.Sprintf("New %s order %s, %d item(s), total %s", payload.Type, payload.OrderID, payload.Items, payload.Total)
		task, err := queue.NewTelegramAlertTask(queue.TelegramAlertPayload{OrderID: payload.OrderID, Text: text})
		if err == nil {
			_, err = n.Enqueuer.Enqueue(ctx, task)
		}
		if err != nil {
			joined = errors.Join(joined, fmt.Errorf("notify: enqueue telegram alert: %w", err))
		}
	}
	return joined
}

func (n *TaskNotifier) onStatusChanged(ctx context.Context, event events.Event) error {
	if !n.Kitchen {
		return nil
	}
	var payload orderEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("notify: decode %s payload: %w", event.Topic, err)
	}
	task, err := queue.NewKitchenAlertTask(queue.KitchenAlertPayload{
		OrderID:  payload.OrderID,
		BranchID: payload.BranchID,
		Status:   payload.Status,
	})
	if err != nil {
		return fmt.Errorf("notify: build kitchen alert: %w", err)
	}
	if _, err := n.Enqueuer.Enqueue(ctx, task); err != nil {
		return fmt.Errorf("notify: enqueue kitchen alert: %w", err)
	}
	return nil
}

var _ events.Notifier = (*TaskNotifier)(nil)
