// Package services hosts background services that run alongside the proxy.
package services

import (
	"context"
	"sync"
	"time"

	"lorebridge/internal/models"
	"lorebridge/internal/store"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	// CounterKeyTotal and friends are Store counter keys surfaced by /health.
	CounterKeyTotal   = "request_count:total"
	CounterKeySuccess = "request_count:success"
	CounterKeyFailure = "request_count:failure"

	defaultFlushInterval = time.Minute
	defaultBufferSize    = 1024
	flushBatchSize       = 200
)

// RequestLogService buffers per-request log records and flushes them to the
// database in batches. Recording never blocks the request path: when the
// buffer is full the record is dropped with a warning.
type RequestLogService struct {
	db       *gorm.DB
	store    store.Store
	buffer   chan *models.RequestLog
	stopChan chan struct{}
	wg       sync.WaitGroup
	interval time.Duration
}

// NewRequestLogService creates a new RequestLogService instance.
func NewRequestLogService(db *gorm.DB, s store.Store) *RequestLogService {
	return &RequestLogService{
		db:       db,
		store:    s,
		buffer:   make(chan *models.RequestLog, defaultBufferSize),
		stopChan: make(chan struct{}),
		interval: defaultFlushInterval,
	}
}

// Record enqueues one request log record and bumps the health counters.
func (s *RequestLogService) Record(entry *models.RequestLog) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	if _, err := s.store.IncrBy(CounterKeyTotal, 1); err != nil {
		logrus.WithError(err).Debug("Failed to increment request counter")
	}
	counterKey := CounterKeyFailure
	if entry.IsSuccess {
		counterKey = CounterKeySuccess
	}
	if _, err := s.store.IncrBy(counterKey, 1); err != nil {
		logrus.WithError(err).Debug("Failed to increment request counter")
	}

	select {
	case s.buffer <- entry:
	default:
		logrus.Warn("Request log buffer full, dropping record")
	}
}

// Counters returns the total/success/failure request counters.
func (s *RequestLogService) Counters() (total, success, failure int64) {
	total, _ = s.store.IncrBy(CounterKeyTotal, 0)
	success, _ = s.store.IncrBy(CounterKeySuccess, 0)
	failure, _ = s.store.IncrBy(CounterKeyFailure, 0)
	return total, success, failure
}

// Start launches the periodic flush routine.
func (s *RequestLogService) Start() {
	s.wg.Add(1)
	go s.runLoop()
}

func (s *RequestLogService) runLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.flush()
		case <-s.stopChan:
			s.flush()
			return
		}
	}
}

// flush drains the buffer and writes pending records in batches.
func (s *RequestLogService) flush() {
	var pending []*models.RequestLog
	for {
		select {
		case entry := <-s.buffer:
			pending = append(pending, entry)
		default:
			if len(pending) == 0 {
				return
			}
			if err := s.db.CreateInBatches(pending, flushBatchSize).Error; err != nil {
				logrus.WithError(err).Errorf("Failed to flush %d request logs", len(pending))
				return
			}
			logrus.Debugf("Flushed %d request logs", len(pending))
			return
		}
	}
}

// Stop flushes outstanding records and stops the service.
func (s *RequestLogService) Stop(ctx context.Context) {
	close(s.stopChan)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logrus.Debug("Request log service stopped")
	case <-ctx.Done():
		logrus.Warn("Request log service stop timed out")
	}
}
