package reconciliation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pixcheckout-backend/internal/transactions"
	"github.com/angelmondragon/pixcheckout-backend/pkg/enums"
	"github.com/angelmondragon/pixcheckout-backend/pkg/logger"
	"github.com/angelmondragon/pixcheckout-backend/pkg/metrics"
	"github.com/angelmondragon/pixcheckout-backend/pkg/pushinpay"
)

const defaultPollInterval = time.Second

// StatusChecker reads the provider's view of a payment intent.
type StatusChecker interface {
	GetPaymentStatus(ctx context.Context, providerID string) (*pushinpay.PaymentStatus, error)
}

// StatusStore is the transaction write path plus its change feed.
type StatusStore interface {
	UpdateStatus(ctx context.Context, match transactions.Match, status enums.TransactionStatus) (*transactions.StatusUpdate, error)
	Feed() transactions.ChangeFeed
}

// Purchase describes a settled payment handed to the tracker exactly once per session.
type Purchase struct {
	Session *Session
	Amount  decimal.Decimal
	Channel enums.ObservationChannel
}

// PurchaseTracker fires the terminal side effect of a paid transaction.
type PurchaseTracker interface {
	TrackPurchase(ctx context.Context, purchase Purchase) error
}

// Options tunes the coordinator timings.
type Options struct {
	PollInterval    time.Duration
	SessionTTL      time.Duration
	JanitorInterval time.Duration
}

// Coordinator runs the poller and the push listener of every live checkout
// session. Both observers write through the store and settle through one latch.
type Coordinator struct {
	checker StatusChecker
	store   StatusStore
	tracker PurchaseTracker
	metrics *metrics.ReconciliationMetrics
	logg    *logger.Logger
	opts    Options
	now     func() time.Time

	mu      sync.Mutex
	running map[string]*observation
}

type observation struct {
	session *Session
	cancel  context.CancelFunc
	sub     transactions.Subscription
	wg      sync.WaitGroup
}

func NewCoordinator(checker StatusChecker, store StatusStore, tracker PurchaseTracker, m *metrics.ReconciliationMetrics, logg *logger.Logger, opts Options) (*Coordinator, error) {
	if checker == nil {
		return nil, fmt.Errorf("status checker required")
	}
	if store == nil {
		return nil, fmt.Errorf("status store required")
	}
	if tracker == nil {
		return nil, fmt.Errorf("purchase tracker required")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 30 * time.Minute
	}
	if opts.JanitorInterval <= 0 {
		opts.JanitorInterval = time.Minute
	}
	return &Coordinator{
		checker: checker,
		store:   store,
		tracker: tracker,
		metrics: m,
		logg:    logg,
		opts:    opts,
		now:     time.Now,
		running: make(map[string]*observation),
	}, nil
}

// Start launches the observers for a session whose intent is bound. Starting
// an already observed session is a no-op. The observers outlive ctx; they end
// on Stop, on settlement, or when the session idles past its TTL.
func (c *Coordinator) Start(ctx context.Context, session *Session) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("session required")
	}
	if session.PixID() == "" {
		return fmt.Errorf("session %s has no payment intent", session.ID)
	}

	c.mu.Lock()
	if _, ok := c.running[session.ID]; ok {
		c.mu.Unlock()
		return nil
	}
	obsCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	obs := &observation{session: session, cancel: cancel}
	c.running[session.ID] = obs
	c.mu.Unlock()

	session.Touch(c.now())
	c.metrics.SessionStarted()
	obsCtx = c.sessionContext(obsCtx, session)

	sub, err := c.store.Feed().Subscribe(obsCtx, session.TransactionID())

	// Stop may have run while Subscribe was blocked; the entry is gone then.
	c.mu.Lock()
	live := c.running[session.ID] == obs
	if live {
		if err == nil {
			obs.sub = sub
			obs.wg.Add(1)
		}
		obs.wg.Add(1)
	}
	c.mu.Unlock()

	switch {
	case !live:
		if err == nil {
			_ = sub.Close()
		}
		return nil
	case err != nil:
		// The poller alone still reaches settlement.
		c.logError(obsCtx, "reconciliation.listener.subscribe_failed", err)
	default:
		go func() {
			defer obs.wg.Done()
			c.listen(obsCtx, session, sub)
		}()
	}

	go func() {
		defer obs.wg.Done()
		c.poll(obsCtx, session)
	}()
	return nil
}

// Stop tears down the observers of a session. Unknown sessions are ignored.
func (c *Coordinator) Stop(sessionID string) {
	c.mu.Lock()
	obs, ok := c.running[sessionID]
	var sub transactions.Subscription
	if ok {
		delete(c.running, sessionID)
		sub = obs.sub
	}
	c.mu.Unlock()
	if !ok {
		return
	}
	obs.cancel()
	if sub != nil {
		_ = sub.Close()
	}
	c.metrics.SessionEnded()
}

// Running reports whether a session still has live observers.
func (c *Coordinator) Running(sessionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.running[sessionID]
	return ok
}

// Touch extends the idle deadline of an observed session.
func (c *Coordinator) Touch(sessionID string) {
	c.mu.Lock()
	obs, ok := c.running[sessionID]
	c.mu.Unlock()
	if ok {
		obs.session.Touch(c.now())
	}
}

// Settle is the only path to the purchase side effect. The session latch
// admits one caller; every later observation returns false.
func (c *Coordinator) Settle(ctx context.Context, session *Session, amount decimal.Decimal, channel enums.ObservationChannel) bool {
	if !session.ClaimPurchase() {
		c.metrics.Observe(channel.String(), "duplicate")
		return false
	}
	c.metrics.IncPurchase(channel.String())
	err := c.tracker.TrackPurchase(context.WithoutCancel(ctx), Purchase{Session: session, Amount: amount, Channel: channel})
	if err != nil {
		c.logError(ctx, "reconciliation.purchase.track_failed", err)
	} else if c.logg != nil {
		c.logg.Info(c.logg.WithField(ctx, "channel", channel.String()), "reconciliation.purchase.tracked")
	}
	return true
}

// Run expires idle sessions until ctx ends, then stops every remaining one.
func (c *Coordinator) Run(ctx context.Context) {
	ticker := time.NewTicker(c.opts.JanitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.StopAll()
			return
		case <-ticker.C:
			c.ExpireIdle()
		}
	}
}

// ExpireIdle stops sessions idle for longer than the TTL and returns how many.
func (c *Coordinator) ExpireIdle() int {
	cutoff := c.now().Add(-c.opts.SessionTTL)
	c.mu.Lock()
	var expired []string
	for id, obs := range c.running {
		if obs.session.IdleSince().Before(cutoff) {
			expired = append(expired, id)
		}
	}
	c.mu.Unlock()
	for _, id := range expired {
		c.Stop(id)
	}
	return len(expired)
}

// StopAll stops every observed session and waits for the observers to return.
func (c *Coordinator) StopAll() {
	c.mu.Lock()
	all := make([]*observation, 0, len(c.running))
	ids := make([]string, 0, len(c.running))
	for id, obs := range c.running {
		all = append(all, obs)
		ids = append(ids, id)
	}
	c.mu.Unlock()
	for _, id := range ids {
		c.Stop(id)
	}
	for _, obs := range all {
		obs.wg.Wait()
	}
}

func (c *Coordinator) poll(ctx context.Context, session *Session) {
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()
	for {
		if c.pollOnce(ctx, session) {
			c.Stop(session.ID)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// pollOnce reports true once the session is settled.
func (c *Coordinator) pollOnce(ctx context.Context, session *Session) bool {
	if session.PurchaseTracked() {
		return true
	}
	status, err := c.checker.GetPaymentStatus(ctx, session.PixID())
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		c.metrics.IncPollError()
		if c.logg != nil {
			c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "reconciliation.poll.error")
		}
		return false
	}
	if !status.IsPaid() {
		c.metrics.Observe(enums.ChannelPoller.String(), string(pushinpay.NormalizeStatus(status.Status)))
		return false
	}

	update, err := c.store.UpdateStatus(ctx, transactions.ByPixID(session.PixID()), enums.TransactionStatusPaid)
	if err != nil {
		c.metrics.Observe(enums.ChannelPoller.String(), "store_error")
		c.logError(ctx, "reconciliation.poll.update_failed", err)
		return false
	}
	c.metrics.Observe(enums.ChannelPoller.String(), string(enums.TransactionStatusPaid))
	if update.Transaction.Status != enums.TransactionStatusPaid {
		// A cancellation landed first; nothing to settle.
		return true
	}
	c.Settle(ctx, session, update.Transaction.TotalValue, enums.ChannelPoller)
	return true
}

func (c *Coordinator) listen(ctx context.Context, session *Session, sub transactions.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-sub.Changes():
			if !ok {
				return
			}
			c.metrics.Observe(enums.ChannelListener.String(), string(change.Status))
			if change.Status != enums.TransactionStatusPaid {
				continue
			}
			c.Settle(ctx, session, change.TotalValue, enums.ChannelListener)
			c.Stop(session.ID)
			return
		}
	}
}

func (c *Coordinator) sessionContext(ctx context.Context, session *Session) context.Context {
	if c.logg == nil {
		return ctx
	}
	ctx = c.logg.WithSessionID(ctx, session.ID)
	ctx = c.logg.WithTransactionID(ctx, session.TransactionID().String())
	return c.logg.WithProviderID(ctx, session.PixID())
}

func (c *Coordinator) logError(ctx context.Context, msg string, err error) {
	if c.logg != nil {
		c.logg.Error(ctx, msg, err)
	}
}
