package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mengleangdeaun/foodie-sub002/internal/obs"
	"github.com/mengleangdeaun/foodie-sub002/internal/queue"
)

// KitchenBoard pushes order activity to the per-branch kitchen display.
// The display subscribes to the pub/sub channel for live updates and reads
// the capped list on reconnect to catch up.
type KitchenBoard struct {
	Client  *redis.Client
	Backlog int64
	Logger  zerolog.Logger
}

func kitchenChannel(branchID string) string { return "kitchen:" + branchID }

// Publish broadcasts one alert and appends it to the branch backlog.
func (k *KitchenBoard) Publish(ctx context.Context, payload queue.KitchenAlertPayload) error {
	if k == nil || k.Client == nil {
		return fmt.Errorf("notify: kitchen board not configured")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	channel := kitchenChannel(payload.BranchID)
	if err := k.Client.Publish(ctx, channel, data).Err(); err != nil {
		obs.ObserveNotifyDelivery("kitchen", "error")
		return fmt.Errorf("notify: kitchen publish: %w", err)
	}
	backlog := k.Backlog
	if backlog <= 0 {
		backlog = 100
	}
	pipe := k.Client.TxPipeline()
	pipe.LPush(ctx, channel+":backlog", data)
	pipe.LTrim(ctx, channel+":backlog", 0, backlog-1)
	if _, err := pipe.Exec(ctx); err != nil {
		obs.ObserveNotifyDelivery("kitchen", "error")
		return fmt.Errorf("notify: kitchen backlog: %w", err)
	}
	obs.ObserveNotifyDelivery("kitchen", "ok")
	return nil
}

// HandleTask processes queued kitchen alerts on the worker.
func (k *KitchenBoard) HandleTask(ctx context.Context, task *asynq.Task) error {
	var payload queue.KitchenAlertPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if err := k.Publish(ctx, payload); err != nil {
		k.Logger.Error().Err(err).Str("order_id", payload.OrderID).Msg("kitchen alert delivery")
		return err
	}
	return nil
}
