package audit

import (
	"context"
	"sync"
	"time"

	"github.com/de-tools/cloud-warden/pkg/adapters"
	"github.com/de-tools/cloud-warden/pkg/models/domain"
	"github.com/de-tools/cloud-warden/pkg/models/store"
	"github.com/rs/zerolog"
)

// Sink receives every audit record the compliance loop produces. Record
// never returns an error: sink unavailability must not fail the pipeline,
// so delivery failures are handled inside the sink.
type Sink interface {
	Record(ctx context.Context, record domain.AuditRecord)
}

// Writer is the persistence edge of the store-backed sink.
type Writer interface {
	Append(ctx context.Context, record store.AuditRecord) error
}

type Settings struct {
	// FlushInterval is the background retry schedule for failed
	// deliveries.
	FlushInterval time.Duration
	// MaxBacklog bounds how many undelivered records are kept; beyond
	// it the oldest are dropped with a log line.
	MaxBacklog int
}

func DefaultSettings() Settings {
	return Settings{
		FlushInterval: 30 * time.Second,
		MaxBacklog:    1000,
	}
}

// StoreSink persists audit records through a Writer. Failed writes land
// in a bounded backlog that a background loop retries best-effort.
type StoreSink struct {
	writer   Writer
	logger   zerolog.Logger
	settings Settings

	mu      sync.Mutex
	backlog []store.AuditRecord
	done    chan struct{}
	once    sync.Once
}

func NewStoreSink(writer Writer, logger zerolog.Logger, settings Settings) *StoreSink {
	if settings.FlushInterval == 0 {
		settings.FlushInterval = DefaultSettings().FlushInterval
	}
	if settings.MaxBacklog == 0 {
		settings.MaxBacklog = DefaultSettings().MaxBacklog
	}
	return &StoreSink{
		writer:   writer,
		logger:   logger,
		settings: settings,
		done:     make(chan struct{}),
	}
}

func (s *StoreSink) Record(ctx context.Context, record domain.AuditRecord) {
	rec := adapters.MapAuditRecordDomainToStore(record)
	if err := s.writer.Append(ctx, rec); err != nil {
		sinkErr := &domain.SinkError{Err: err}
		s.logger.Warn().
			Err(sinkErr).
			Str("record", record.ID).
			Msg("audit delivery failed, queued for retry")
		s.enqueue(rec)
	}
}

// Start launches the background retry loop. It runs until the context is
// cancelled or Close is called.
func (s *StoreSink) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.settings.FlushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case <-ticker.C:
				s.flush(ctx)
			}
		}
	}()
}

func (s *StoreSink) Close() {
	s.once.Do(func() { close(s.done) })
}

// Backlog reports how many records await redelivery.
func (s *StoreSink) Backlog() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.backlog)
}

func (s *StoreSink) enqueue(rec store.AuditRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.backlog) >= s.settings.MaxBacklog {
		dropped := s.backlog[0]
		s.backlog = s.backlog[1:]
		s.logger.Error().
			Str("record", dropped.ID).
			Msg("audit backlog full, dropping oldest record")
	}
	s.backlog = append(s.backlog, rec)
}

func (s *StoreSink) flush(ctx context.Context) {
	s.mu.Lock()
	pending := s.backlog
	s.backlog = nil
	s.mu.Unlock()

	var failed []store.AuditRecord
	for _, rec := range pending {
		if err := s.writer.Append(ctx, rec); err != nil {
			failed = append(failed, rec)
		}
	}

	if len(failed) > 0 {
		s.mu.Lock()
		s.backlog = append(failed, s.backlog...)
		s.mu.Unlock()
		s.logger.Warn().
			Int("pending", len(failed)).
			Msg("audit redelivery incomplete")
	}
}

// MemorySink collects records in memory. It backs tests and the one-shot
// CLI commands, which report to stdout instead of the store.
type MemorySink struct {
	mu      sync.Mutex
	records []domain.AuditRecord
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (m *MemorySink) Record(_ context.Context, record domain.AuditRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
}

func (m *MemorySink) Records() []domain.AuditRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AuditRecord, len(m.records))
	copy(out, m.records)
	return out
}
