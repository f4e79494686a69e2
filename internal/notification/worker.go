package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"ops-console-backend/internal/metrics"
	"ops-console-backend/internal/model"
	"ops-console-backend/internal/resource"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender sends through the webpush library.
type WebPushSender struct{}

func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Message is the JSON payload delivered to subscribed browsers.
type Message struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Kind   string `json:"kind"`
	ID     int64  `json:"id"`
	Action string `json:"action"`
}

// WorkerPool fans change events out to every push subscription.
type WorkerPool struct {
	size    int
	jobs    chan resource.ChangeEvent
	db      *gorm.DB
	webpush *webpush.Options
	sender  NotificationSender
	log     *zap.Logger
}

// NewWorkerPool creates a pool of size workers with a queue of 16 events per
// worker.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options, log *zap.Logger) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan resource.ChangeEvent, size*16),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		log:     log,
	}
}

// Start launches the worker goroutines. They stop when ctx is done.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.log.Debug("notification worker started", zap.Int("worker", id))
	for {
		select {
		case ev := <-wp.jobs:
			wp.broadcast(ctx, ev)
		case <-ctx.Done():
			wp.log.Debug("notification worker shutting down", zap.Int("worker", id))
			return
		}
	}
}

// Notify queues ev without blocking. A full queue drops the event.
func (wp *WorkerPool) Notify(ev resource.ChangeEvent) {
	select {
	case wp.jobs <- ev:
	default:
		metrics.PushDeliveries.WithLabelValues("dropped").Inc()
		wp.log.Warn("notification queue full; dropping event",
			zap.String("kind", ev.Kind), zap.Int64("id", ev.ID), zap.String("action", ev.Action))
	}
}

// Render builds the message for ev.
func Render(ev resource.ChangeEvent) Message {
	past := map[string]string{
		resource.ActionCreate: "created",
		resource.ActionUpdate: "updated",
		resource.ActionToggle: "status changed",
		resource.ActionDelete: "removed",
	}[ev.Action]
	if past == "" {
		past = ev.Action
	}
	return Message{
		Title:  fmt.Sprintf("%s %s", ev.Label, past),
		Body:   fmt.Sprintf("%s #%d %s", ev.Label, ev.ID, past),
		Kind:   ev.Kind,
		ID:     ev.ID,
		Action: ev.Action,
	}
}

func (wp *WorkerPool) broadcast(ctx context.Context, ev resource.ChangeEvent) {
	var subscriptions []model.PushSubscription
	if err := wp.db.WithContext(ctx).Find(&subscriptions).Error; err != nil {
		wp.log.Error("failed to load push subscriptions", zap.Error(err))
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(Render(ev))
	if err != nil {
		wp.log.Error("failed to encode notification", zap.Error(err))
		return
	}
	wp.log.Debug("sending change notifications",
		zap.Int("subscriptions", len(subscriptions)), zap.String("kind", ev.Kind), zap.Int64("id", ev.ID))
	for _, sub := range subscriptions {
		wp.send(ctx, sub, payload)
	}
}

func (wp *WorkerPool) send(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		metrics.PushDeliveries.WithLabelValues("error").Inc()
		wp.log.Warn("push delivery failed", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		metrics.PushDeliveries.WithLabelValues("gone").Inc()
		wp.log.Info("push subscription expired; deleting", zap.String("endpoint", sub.Endpoint))
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			wp.log.Error("failed to delete expired subscription", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
		return
	}
	metrics.PushDeliveries.WithLabelValues("sent").Inc()
}
