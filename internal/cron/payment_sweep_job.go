package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/pixcheckout-backend/internal/transactions"
	"github.com/angelmondragon/pixcheckout-backend/pkg/db/models"
	"github.com/angelmondragon/pixcheckout-backend/pkg/enums"
	"github.com/angelmondragon/pixcheckout-backend/pkg/logger"
	"github.com/angelmondragon/pixcheckout-backend/pkg/metrics"
	"github.com/angelmondragon/pixcheckout-backend/pkg/pushinpay"
)

const (
	defaultSweepStaleAfter = 10 * time.Minute
	defaultSweepMaxAge     = 24 * time.Hour
	defaultSweepBatchSize  = 50
)

type sweepStore interface {
	ListStale(ctx context.Context, status enums.TransactionStatus, olderThan time.Time, limit int) ([]models.Transaction, error)
	UpdateStatus(ctx context.Context, match transactions.Match, status enums.TransactionStatus) (*transactions.StatusUpdate, error)
}

type statusChecker interface {
	GetPaymentStatus(ctx context.Context, providerID string) (*pushinpay.PaymentStatus, error)
}

type PaymentSweepJobParams struct {
	Logger     *logger.Logger
	Store      sweepStore
	Provider   statusChecker
	Metrics    *metrics.ReconciliationMetrics
	StaleAfter time.Duration
	MaxAge     time.Duration
	BatchSize  int
}

// NewPaymentSweepJob asks the provider about awaiting_payment transactions
// nobody is watching anymore. It only writes status; no pixel event fires here.
func NewPaymentSweepJob(params PaymentSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("transaction store required")
	}
	if params.Provider == nil {
		return nil, fmt.Errorf("payment provider required")
	}
	job := &paymentSweepJob{
		logg:       params.Logger,
		store:      params.Store,
		provider:   params.Provider,
		metrics:    params.Metrics,
		staleAfter: params.StaleAfter,
		maxAge:     params.MaxAge,
		batchSize:  params.BatchSize,
		now:        time.Now,
	}
	if job.staleAfter <= 0 {
		job.staleAfter = defaultSweepStaleAfter
	}
	if job.maxAge <= 0 {
		job.maxAge = defaultSweepMaxAge
	}
	if job.batchSize <= 0 {
		job.batchSize = defaultSweepBatchSize
	}
	return job, nil
}

type paymentSweepJob struct {
	logg       *logger.Logger
	store      sweepStore
	provider   statusChecker
	metrics    *metrics.ReconciliationMetrics
	staleAfter time.Duration
	maxAge     time.Duration
	batchSize  int
	now        func() time.Time
}

func (j *paymentSweepJob) Name() string { return "payment-sweep" }

func (j *paymentSweepJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	rows, err := j.store.ListStale(ctx, enums.TransactionStatusAwaitingPayment, now.Add(-j.staleAfter), j.batchSize)
	if err != nil {
		return fmt.Errorf("list stale transactions: %w", err)
	}

	var (
		errs    error
		checked int
		updated int
	)
	oldest := now.Add(-j.maxAge)
	for _, row := range rows {
		if row.PixID == nil || *row.PixID == "" || row.CreatedAt.Before(oldest) {
			continue
		}
		checked++
		changed, err := j.reconcile(ctx, *row.PixID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("transaction %s: %w", row.ID, err))
			continue
		}
		if changed {
			updated++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(rows),
		"checked":    checked,
		"updated":    updated,
	})
	j.logg.Info(logCtx, "payment sweep complete")
	return errs
}

func (j *paymentSweepJob) reconcile(ctx context.Context, pixID string) (bool, error) {
	status, err := j.provider.GetPaymentStatus(ctx, pixID)
	if err != nil {
		j.metrics.Observe(enums.ChannelSweep.String(), "provider_error")
		return false, err
	}
	target := pushinpay.NormalizeStatus(status.Status)
	j.metrics.Observe(enums.ChannelSweep.String(), string(target))
	if target == enums.TransactionStatusPending {
		return false, nil
	}
	update, err := j.store.UpdateStatus(ctx, transactions.ByPixID(pixID), target)
	if err != nil {
		return false, err
	}
	return update.Changed, nil
}
