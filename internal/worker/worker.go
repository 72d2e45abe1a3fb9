package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"booking-service/internal/broker"
	"booking-service/internal/models"
	"booking-service/internal/service"
	"booking-service/internal/util"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper runs one expiry pass
type Sweeper interface {
	Sweep(ctx context.Context) (service.SweepResult, error)
}

// ExpiryWorker runs the expiry sweep on a fixed interval. A pass that is
// still running when the next tick fires causes that tick to be skipped.
type ExpiryWorker struct {
	cron     *cron.Cron
	sweeper  Sweeper
	interval time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewExpiryWorker creates a new expiry worker
func NewExpiryWorker(sweeper Sweeper, interval time.Duration) *ExpiryWorker {
	logger := util.GetLogger()
	c := cron.New(cron.WithChain(
		cron.Recover(cronLogger{logger}),
		cron.SkipIfStillRunning(cronLogger{logger}),
	))

	return &ExpiryWorker{
		cron:     c,
		sweeper:  sweeper,
		interval: interval,
		logger:   logger,
	}
}

// Start schedules the sweep
func (w *ExpiryWorker) Start(ctx context.Context) error {
	if w.interval <= 0 {
		return fmt.Errorf("invalid sweep interval %s", w.interval)
	}

	w.mu.Lock()
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	spec := fmt.Sprintf("@every %s", w.interval)
	if _, err := w.cron.AddFunc(spec, w.run); err != nil {
		return fmt.Errorf("failed to schedule expiry sweep: %w", err)
	}

	w.cron.Start()
	w.logger.Info("Expiry worker started", zap.Duration("interval", w.interval))
	return nil
}

// Stop cancels an in-flight pass and waits for it to finish
func (w *ExpiryWorker) Stop() {
	w.logger.Info("Stopping expiry worker...")
	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
	}
	w.mu.Unlock()

	<-w.cron.Stop().Done()
	w.logger.Info("Expiry worker stopped")
}

// RunOnce runs a single pass synchronously
func (w *ExpiryWorker) RunOnce(ctx context.Context) (service.SweepResult, error) {
	return w.sweeper.Sweep(ctx)
}

func (w *ExpiryWorker) run() {
	w.mu.Lock()
	ctx := w.ctx
	w.mu.Unlock()

	if _, err := w.sweeper.Sweep(ctx); err != nil {
		util.SweepErrorsTotal.Inc()
		w.logger.Error("Expiry sweep failed", zap.Error(err))
	}
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}

// AvailabilityHandler reacts to booking events
type AvailabilityHandler interface {
	HandleBookingEvent(ctx context.Context, event *models.BookingEvent) error
}

// AvailabilityWorker keeps the seat availability projection current by
// consuming booking events
type AvailabilityWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewAvailabilityWorker creates a new availability worker
func NewAvailabilityWorker(consumer *broker.Consumer, inventory AvailabilityHandler) *AvailabilityWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnBookingEvent(inventory.HandleBookingEvent)

	return &AvailabilityWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		logger:       util.GetLogger(),
	}
}

// Start consumes until ctx is cancelled
func (w *AvailabilityWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting availability worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the availability worker
func (w *AvailabilityWorker) Stop() error {
	w.logger.Info("Stopping availability worker...")
	return w.consumer.Close()
}
