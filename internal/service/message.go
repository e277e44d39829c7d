package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oggyb/elk-messaging/internal/cache"
	domain "github.com/oggyb/elk-messaging/internal/domain/message"
	"github.com/oggyb/elk-messaging/internal/elk"
	"github.com/oggyb/elk-messaging/internal/metrics"
	"github.com/oggyb/elk-messaging/internal/sms"
	"github.com/rs/zerolog"
)

const (
	sentTTL   = 24 * time.Hour
	statusTTL = 30 * time.Second

	staleReason = "send interrupted"

	// persistTimeout bounds status writes made after the send context
	// may already be done.
	persistTimeout = 5 * time.Second
)

// EnqueueInput is what a caller provides to queue a message.
type EnqueueInput struct {
	From    string
	To      string
	Content string
	Image   string
	Flash   bool
}

type MessageService interface {
	Enqueue(ctx context.Context, in EnqueueInput) (*domain.Message, error)
	GetSent(ctx context.Context, page, limit int) ([]*domain.Message, int64, error)
	GatewayLog(ctx context.Context) ([]*elk.SMS, error)
	Refresh(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	ProcessBatch(ctx context.Context) error
}

// Options carries the batch processing settings and defaults, injected
// from config at startup.
type Options struct {
	BatchSize         int
	MaxWorkers        int
	PerMessageTimeout time.Duration
	// StaleAfter is how long a message may stay SENDING before a later
	// batch gives up on it and marks it FAILED.
	StaleAfter time.Duration
	// DefaultSender is used when a message is enqueued without a sender.
	DefaultSender string
	// Metrics may be nil.
	Metrics *metrics.Metrics
}

type messageService struct {
	repo      domain.Repository
	smsClient sms.Client
	lister    sms.Lister
	cache     cache.Cache
	log       zerolog.Logger
	metrics   *metrics.Metrics

	batchSize         int
	maxWorkers        int
	perMessageTimeout time.Duration
	staleAfter        time.Duration
	defaultSender     string
}

// NewMessageService creates a message service with the given dependencies
// and batch processing settings. The config values are passed explicitly
// from the caller (e.g. main) so this package does not depend on env.
// cache and lister may be nil.
func NewMessageService(
	repo domain.Repository,
	smsClient sms.Client,
	lister sms.Lister,
	cache cache.Cache,
	opts Options,
	log zerolog.Logger,
) MessageService {
	// Apply sane defaults if config values are missing or invalid.
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 4
	}
	if opts.PerMessageTimeout <= 0 {
		opts.PerMessageTimeout = 5 * time.Second
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 10 * time.Minute
	}

	return &messageService{
		repo:              repo,
		smsClient:         smsClient,
		lister:            lister,
		cache:             cache,
		log:               log,
		metrics:           opts.Metrics,
		batchSize:         opts.BatchSize,
		maxWorkers:        opts.MaxWorkers,
		perMessageTimeout: opts.PerMessageTimeout,
		staleAfter:        opts.StaleAfter,
		defaultSender:     opts.DefaultSender,
	}
}

// Enqueue validates the input and stores it as a PENDING message.
func (s *messageService) Enqueue(ctx context.Context, in EnqueueInput) (*domain.Message, error) {
	from := in.From
	if from == "" {
		from = s.defaultSender
	}

	msg, err := domain.NewMessage(from, in.To, in.Content)
	if err != nil {
		return nil, err
	}
	msg.Image = in.Image
	msg.Flash = in.Flash

	if err := s.repo.Save(ctx, msg); err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}

	s.log.Info().
		Str("id", msg.ID.String()).
		Int("recipients", len(msg.Recipients())).
		Bool("mms", msg.Image != "").
		Msg("message enqueued")

	return msg, nil
}

func (s *messageService) GetSent(ctx context.Context, page, limit int) ([]*domain.Message, int64, error) {
	return s.repo.GetSent(ctx, page, limit)
}

// GatewayLog returns the gateway's own listing of its latest messages.
func (s *messageService) GatewayLog(ctx context.Context) ([]*elk.SMS, error) {
	if s.lister == nil {
		return nil, errors.New("gateway listing is not configured")
	}
	return s.lister.List(ctx)
}

// Refresh asks the gateway for the delivery status of a sent message and
// stores it. Statuses are cached briefly to spare the gateway repeated lookups.
func (s *messageService) Refresh(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	msg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if msg.GatewayID == "" {
		return msg, nil
	}

	key := cache.GatewayStatus.Key(msg.GatewayID)
	if s.cache != nil {
		if status, err := s.cache.Get(ctx, key); err == nil {
			msg.GatewayStatus = status
			return msg, nil
		}
	}

	status, err := s.smsClient.Status(ctx, msg.GatewayID)
	if err != nil {
		return nil, fmt.Errorf("refresh %s: %w", id, err)
	}

	msg.GatewayStatus = status
	if err := s.repo.UpdateStatus(ctx, msg); err != nil {
		return nil, fmt.Errorf("update status for %s: %w", id, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, status, statusTTL); err != nil {
			s.log.Warn().Err(err).Str("gateway_id", msg.GatewayID).Msg("failed to cache gateway status")
		}
	}

	return msg, nil
}

// ProcessBatch claims a batch of pending messages and sends them with a
// small worker pool. Messages left SENDING by an interrupted batch are
// failed first; they are never resent because the gateway may already
// have delivered them.
func (s *messageService) ProcessBatch(ctx context.Context) error {
	n, err := s.repo.FailStale(ctx, time.Now().Add(-s.staleAfter), staleReason)
	if err != nil {
		return fmt.Errorf("failed to release stale messages: %w", err)
	}
	if n > 0 {
		s.log.Warn().Int64("messages", n).Msg("failed messages stuck in SENDING")
	}

	messages, err := s.repo.ClaimPending(ctx, s.batchSize)
	if err != nil {
		return fmt.Errorf("failed to claim pending messages: %w", err)
	}

	if len(messages) == 0 {
		s.log.Debug().Msg("no pending messages to process")
		return nil
	}

	workerCount := len(messages)
	if workerCount > s.maxWorkers {
		workerCount = s.maxWorkers
	}

	s.log.Info().
		Int("messages", len(messages)).
		Int("workers", workerCount).
		Msg("processing batch")

	start := time.Now()
	defer func() { s.metrics.ObserveBatch(time.Since(start)) }()

	var wg sync.WaitGroup

	// Each worker takes a stride of the batch: worker w handles indices
	// w, w+workerCount, w+2*workerCount, ...
	for w := 0; w < workerCount; w++ {
		wg.Add(1)

		go func(workerID, start int) {
			defer wg.Done()

			for i := start; i < len(messages); i += workerCount {
				if ctx.Err() != nil {
					s.log.Warn().Int("worker", workerID).Msg("context cancelled, stopping worker")
					for j := i; j < len(messages); j += workerCount {
						s.release(ctx, messages[j])
					}
					return
				}

				msg := messages[i]
				msgCtx, cancel := context.WithTimeout(ctx, s.perMessageTimeout)

				if err := s.processMessage(msgCtx, msg); err != nil {
					s.log.Error().Err(err).
						Int("worker", workerID).
						Str("id", msg.ID.String()).
						Msg("failed to process message")
				}

				cancel()
			}
		}(w+1, w)
	}

	wg.Wait()

	s.log.Info().Msg("batch worker pool completed")
	return nil
}

// release puts a claimed but unsent message back to PENDING.
func (s *messageService) release(ctx context.Context, msg *domain.Message) {
	msg.Status = domain.StatusPending
	if err := s.persist(ctx, msg); err != nil {
		s.log.Error().Err(err).Str("id", msg.ID.String()).Msg("failed to release message")
	}
}

// persist stores msg's status on a fresh deadline, detached from ctx's
// cancellation, so an outcome is recorded even when ctx has expired.
func (s *messageService) persist(ctx context.Context, msg *domain.Message) error {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	return s.repo.UpdateStatus(pctx, msg)
}

// processMessage sends a single pending message through the gateway and
// updates its status in the repository.
//
// On failure the message is marked FAILED so it is not retried forever as
// PENDING. On success it is marked SUCCESS and each gateway id is cached
// with its send time. Both outcomes are stored even if ctx has expired.
func (s *messageService) processMessage(ctx context.Context, msg *domain.Message) error {
	id := msg.ID.String()

	gatewayID, rawResp, err := s.smsClient.Send(ctx, msg)
	s.metrics.ObserveMessage(err == nil)
	if err != nil {
		msg.MarkFailed(rawResp)

		if uErr := s.persist(ctx, msg); uErr != nil {
			s.log.Error().Err(uErr).Str("id", id).Msg("failed to persist FAILED status")
		}

		return fmt.Errorf("send message %s: %w", id, err)
	}

	msg.MarkSent(gatewayID, rawResp)
	if err := s.persist(ctx, msg); err != nil {
		return fmt.Errorf("update status for %s: %w", id, err)
	}

	if s.cache != nil && gatewayID != "" {
		sentAt := msg.SentAt.Format(time.RFC3339)
		entries := make(map[string]string)
		for _, key := range cache.SentMessages.Keys(gatewayID) {
			entries[key] = sentAt
		}
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
		err := s.cache.SetMany(cctx, entries, sentTTL)
		cancel()
		if err != nil {
			s.log.Warn().Err(err).Str("gateway_id", gatewayID).Msg("failed to cache sent message")
		}
	}

	return nil
}
