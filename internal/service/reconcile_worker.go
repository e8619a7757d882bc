package service

import (
	"context"
	"encoding/json"
	"time"

	"vidtube/internal/util"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	ReconcileExchange   = "cascade_exchange"
	ReconcileQueue      = "cascade_reconcile_queue"
	ReconcileRoutingKey = "cascade.reconcile"
)

// rabbitReconcilePublisher publishes reconcile requests to the cascade exchange.
type rabbitReconcilePublisher struct {
	rabbitMQ *util.RabbitMQClient
}

// NewReconcilePublisher declares the reconcile queue and returns a publisher for it.
func NewReconcilePublisher(rabbitMQ *util.RabbitMQClient) (ReconcilePublisher, error) {
	if err := rabbitMQ.DeclareQueue(ReconcileExchange, ReconcileQueue, ReconcileRoutingKey); err != nil {
		return nil, err
	}
	return &rabbitReconcilePublisher{rabbitMQ: rabbitMQ}, nil
}

func (p *rabbitReconcilePublisher) PublishReconcile(ctx context.Context, req ReconcileRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return errors.Wrap(err, "marshal reconcile request")
	}
	return p.rabbitMQ.Publish(ctx, ReconcileExchange, ReconcileRoutingKey, body)
}

// ReconcileWorker sweeps orphaned replies and likes. It runs on every reconcile
// request from RabbitMQ and, when interval > 0, on a timer.
type ReconcileWorker struct {
	cascade  *CascadeCoordinator
	rabbitMQ *util.RabbitMQClient
	interval time.Duration
	stopChan chan struct{}
}

func NewReconcileWorker(cascade *CascadeCoordinator, rabbitMQ *util.RabbitMQClient, interval time.Duration) *ReconcileWorker {
	return &ReconcileWorker{
		cascade:  cascade,
		rabbitMQ: rabbitMQ,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins consuming and ticking. Without RabbitMQ only the timer runs.
func (w *ReconcileWorker) Start() error {
	if w.rabbitMQ != nil {
		if err := w.consume(); err != nil {
			return err
		}
	}
	if w.interval > 0 {
		go w.tick()
	}
	return nil
}

func (w *ReconcileWorker) consume() error {
	if err := w.rabbitMQ.DeclareQueue(ReconcileExchange, ReconcileQueue, ReconcileRoutingKey); err != nil {
		return err
	}

	msgs, err := w.rabbitMQ.GetChannel().Consume(
		ReconcileQueue,
		"reconcile_worker",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return errors.Wrap(err, "consume reconcile queue")
	}

	go func() {
		logrus.Info("Reconcile worker started, consuming messages...")
		for {
			select {
			case <-w.stopChan:
				logrus.Info("Reconcile worker stopped")
				return
			case msg, ok := <-msgs:
				if !ok {
					logrus.Warn("Reconcile queue closed")
					return
				}
				if err := w.HandleMessage(context.Background(), msg.Body); err != nil {
					logrus.WithError(err).Error("Error processing reconcile message")
					// malformed messages are dropped, store failures are requeued
					msg.Nack(false, !isMalformed(err))
				} else {
					msg.Ack(false)
				}
			}
		}
	}()
	return nil
}

func (w *ReconcileWorker) tick() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			if _, err := w.cascade.ReconcileOrphans(context.Background()); err != nil {
				logrus.WithError(err).Error("Scheduled reconcile failed")
			}
		}
	}
}

type malformedMessageError struct{ error }

func isMalformed(err error) bool {
	var m malformedMessageError
	return errors.As(err, &m)
}

// HandleMessage decodes one reconcile request and runs a sweep.
func (w *ReconcileWorker) HandleMessage(ctx context.Context, body []byte) error {
	var req ReconcileRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return malformedMessageError{errors.Wrap(err, "decode reconcile request")}
	}

	result, err := w.cascade.ReconcileOrphans(ctx)
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"content_id":      req.ContentID,
		"kind":            req.Kind,
		"failed_steps":    len(req.Failures),
		"replies_deleted": result.RepliesDeleted,
		"likes_deleted":   result.LikesDeleted,
	}).Info("Reconcile request processed")
	return nil
}

// Stop stops the worker
func (w *ReconcileWorker) Stop() {
	close(w.stopChan)
}
