// Package queue defines the background tasks that fan out order activity to
// the kitchen display and Telegram, processed by the worker binary.
package queue

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the queue name all order notification tasks run on.
	QueueDefault = "default"
	// TaskKitchenAlert notifies the kitchen display of a new or updated order.
	TaskKitchenAlert = "order:kitchen_alert"
	// TaskTelegramAlert sends the owner a Telegram message about an order.
	TaskTelegramAlert = "order:telegram_alert"
)

// KitchenAlertPayload carries what the kitchen display needs to render.
type KitchenAlertPayload struct {
	OrderID   string `json:"orderId"`
	BranchID  string `json:"branchId"`
	OrderType string `json:"orderType,omitempty"`
	Status    string `json:"status,omitempty"`
	Items     int    `json:"items,omitempty"`
}

// NewKitchenAlertTask constructs an Asynq task for the kitchen display.
func NewKitchenAlertTask(payload KitchenAlertPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskKitchenAlert, data, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}

// TelegramAlertPayload carries the rendered message text for the owner chat.
type TelegramAlertPayload struct {
	OrderID string `json:"orderId"`
	Text    string `json:"text"`
}

// NewTelegramAlertTask constructs an Asynq task for a Telegram alert.
func NewTelegramAlertTask(payload TelegramAlertPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTelegramAlert, data, asynq.Queue(QueueDefault), asynq.MaxRetry(8)), nil
}

// Enqueuer submits tasks to the queue. A nil Enqueuer drops everything, which
// keeps task submission optional in tests.
type Enqueuer struct {
	Client *asynq.Client
}

// Enqueue submits a task, returning the task id assigned by the broker.
func (e *Enqueuer) Enqueue(ctx context.Context, task *asynq.Task) (string, error) {
	if e == nil || e.Client == nil {
		return "", nil
	}
	info, err := e.Client.EnqueueContext(ctx, task)
	if err != nil {
		return "", err
	}
	return info.ID, nil
}
