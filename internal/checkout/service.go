package checkout

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pixcheckout-backend/internal/reconciliation"
	"github.com/angelmondragon/pixcheckout-backend/internal/siteconfig"
	"github.com/angelmondragon/pixcheckout-backend/internal/transactions"
	"github.com/angelmondragon/pixcheckout-backend/internal/upsells"
	"github.com/angelmondragon/pixcheckout-backend/pkg/db/models"
	"github.com/angelmondragon/pixcheckout-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pixcheckout-backend/pkg/errors"
	"github.com/angelmondragon/pixcheckout-backend/pkg/logger"
	"github.com/angelmondragon/pixcheckout-backend/pkg/money"
	"github.com/angelmondragon/pixcheckout-backend/pkg/pushinpay"
)

const (
	defaultSessionTTL = 30 * time.Minute
	minimumAmountMsg  = "O valor mínimo para pagamento PIX é R$ 0,50"
)

type settingsLoader interface {
	Load(ctx context.Context) (siteconfig.Settings, error)
}

type blockChecker interface {
	Check(ctx context.Context, ip string) (*models.BlockedIP, error)
}

type upsellCatalog interface {
	List(ctx context.Context, activeOnly bool) ([]models.UpsellOffer, error)
	Selected(ctx context.Context, ids []uuid.UUID) ([]upsells.Priced, error)
}

type transactionStore interface {
	Create(ctx context.Context, input transactions.NewTransaction) (*models.Transaction, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	UpdateWhatsapp(ctx context.Context, id uuid.UUID, whatsapp string) (*models.Transaction, error)
	AttachIntent(ctx context.Context, id uuid.UUID, input transactions.AttachIntentInput) (*models.Transaction, error)
}

type paymentProvider interface {
	CreatePaymentIntent(ctx context.Context, amount int64, webhookURL string) (*pushinpay.PaymentIntent, error)
}

type observer interface {
	Start(ctx context.Context, session *reconciliation.Session) error
	Stop(sessionID string)
	Touch(sessionID string)
}

type funnelTracker interface {
	TrackCheckoutInitiated(ctx context.Context, session *reconciliation.Session, upsellAdded bool) error
	TrackAddToCart(ctx context.Context, session *reconciliation.Session, upsellID uuid.UUID, title string, price decimal.Decimal) error
}

// Options tunes session lifetime and the webhook URL sent with every intent.
type Options struct {
	SessionTTL time.Duration
	WebhookURL string
}

// Deps groups the collaborators of the checkout flow.
type Deps struct {
	Settings     settingsLoader
	Blocklist    blockChecker
	Upsells      upsellCatalog
	Transactions transactionStore
	Provider     paymentProvider
	Coordinator  observer
	Tracker      funnelTracker
	Logger       *logger.Logger
}

// Service drives one buyer from the data entry form to an issued PIX charge.
// Sessions live in memory; the transaction row is the durable record.
type Service struct {
	settings     settingsLoader
	blocklist    blockChecker
	upsells      upsellCatalog
	transactions transactionStore
	provider     paymentProvider
	coordinator  observer
	tracker      funnelTracker
	logg         *logger.Logger
	opts         Options
	now          func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	mu      sync.Mutex
	recon   *reconciliation.Session
	mode    enums.FieldsMode
	step    Step
	payment *Payment
}

// StartInput identifies the visitor opening the checkout page.
type StartInput struct {
	IPAddress string
	UserAgent string
}

// StartResult carries either a redirect or a fresh session, never both.
type StartResult struct {
	RedirectURL string `json:"redirect_url,omitempty"`
	Session     *View  `json:"session,omitempty"`
}

// View is what the checkout page renders for a session.
type View struct {
	SessionID     string                     `json:"session_id"`
	Step          string                     `json:"step"`
	StepIndex     int                        `json:"step_index"`
	FieldsMode    enums.FieldsMode           `json:"checkout_fields_mode"`
	TransactionID *uuid.UUID                 `json:"transaction_id,omitempty"`
	Settings      *siteconfig.PublicSettings `json:"settings,omitempty"`
	Upsells       []models.UpsellOffer       `json:"upsells,omitempty"`
	Payment       *Payment                   `json:"payment,omitempty"`
}

// PayInput lists the upsells the buyer ticked on the payment step.
type PayInput struct {
	UpsellIDs []uuid.UUID `json:"upsell_ids"`
}

// Payment is the issued PIX charge shown to the buyer.
type Payment struct {
	PixID        string          `json:"pix_id"`
	CopiaCola    string          `json:"copia_cola"`
	QRCode       string          `json:"qr_code"`
	Total        decimal.Decimal `json:"total"`
	TotalDisplay string          `json:"total_display"`
	UpsellAdded  bool            `json:"upsell_added"`
}

// StatusView answers the front-end status poll.
type StatusView struct {
	SessionID       string                  `json:"session_id"`
	TransactionID   uuid.UUID               `json:"transaction_id"`
	Status          enums.TransactionStatus `json:"status"`
	PurchaseTracked bool                    `json:"purchase_tracked"`
}

func NewService(deps Deps, opts Options) (*Service, error) {
	switch {
	case deps.Settings == nil:
		return nil, errors.New("site config required")
	case deps.Blocklist == nil:
		return nil, errors.New("blocklist required")
	case deps.Upsells == nil:
		return nil, errors.New("upsell catalog required")
	case deps.Transactions == nil:
		return nil, errors.New("transaction store required")
	case deps.Provider == nil:
		return nil, errors.New("payment provider required")
	case deps.Coordinator == nil:
		return nil, errors.New("reconciliation coordinator required")
	case deps.Tracker == nil:
		return nil, errors.New("funnel tracker required")
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = defaultSessionTTL
	}
	return &Service{
		settings:     deps.Settings,
		blocklist:    deps.Blocklist,
		upsells:      deps.Upsells,
		transactions: deps.Transactions,
		provider:     deps.Provider,
		coordinator:  deps.Coordinator,
		tracker:      deps.Tracker,
		logg:         deps.Logger,
		opts:         opts,
		now:          time.Now,
		sessions:     make(map[string]*session),
	}, nil
}

// StartSession gates the visitor (IP block, desktop redirect) and opens a session at data entry.
func (s *Service) StartSession(ctx context.Context, input StartInput) (*StartResult, error) {
	ip := strings.TrimSpace(input.IPAddress)
	if ip != "" {
		block, err := s.blocklist.Check(ctx, ip)
		if err != nil {
			return nil, err
		}
		if block != nil {
			s.logg.Info(s.logg.WithField(ctx, "ip_address", ip), "checkout.blocked_ip_redirect")
			return &StartResult{RedirectURL: block.RedirectURL}, nil
		}
	}

	settings, err := s.settings.Load(ctx)
	if err != nil {
		return nil, err
	}
	if settings.MobileOnlyCheckout && !isMobileUserAgent(input.UserAgent) {
		return &StartResult{RedirectURL: settings.DesktopRedirectURL}, nil
	}

	offers, err := s.upsells.List(ctx, true)
	if err != nil {
		return nil, err
	}

	sess := &session{
		recon: reconciliation.NewSession(uuid.NewString(), ip, input.UserAgent),
		mode:  settings.FieldsMode,
		step:  StepDataEntry,
	}
	sess.recon.Touch(s.now())

	s.mu.Lock()
	s.sessions[sess.recon.ID] = sess
	s.mu.Unlock()

	public := settings.Public()
	view := sess.view()
	view.Settings = &public
	view.Upsells = offers
	return &StartResult{Session: &view}, nil
}

// Advance submits the form of the current step. The transaction is created once,
// on the first successful data entry submit.
func (s *Service) Advance(ctx context.Context, sessionID string, form Form) (*View, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	form = form.trimmed()
	switch {
	case sess.step == StepDataEntry:
		if err := s.submitDataEntry(ctx, sess, form); err != nil {
			return nil, err
		}
	case sess.step < maxStep(sess.mode):
		if err := validateWhatsapp(form.Whatsapp); err != nil {
			return nil, err
		}
		if form.Whatsapp != "" {
			if _, err := s.transactions.UpdateWhatsapp(ctx, sess.recon.TransactionID(), form.Whatsapp); err != nil {
				return nil, err
			}
		}
		sess.step = maxStep(sess.mode)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout already at payment step")
	}

	view := sess.view()
	return &view, nil
}

func (s *Service) submitDataEntry(ctx context.Context, sess *session, form Form) error {
	if err := validateDataEntry(sess.mode, form); err != nil {
		return err
	}
	if sess.recon.TransactionID() == uuid.Nil {
		settings, err := s.settings.Load(ctx)
		if err != nil {
			return err
		}
		input := transactions.NewTransaction{
			Name:       form.Name,
			TotalValue: settings.MainProductPrice,
			IPAddress:  sess.recon.IPAddress,
		}
		switch sess.mode {
		case enums.FieldsModeNameEmail:
			input.Email = form.Email
		case enums.FieldsModeNameWhatsapp:
			input.Phone = form.Phone
			input.Whatsapp = firstNonEmpty(form.Whatsapp, form.Phone)
		default:
			input.Email = form.Email
			input.Phone = form.Phone
			input.CPF = form.CPF
		}
		txn, err := s.transactions.Create(ctx, input)
		if err != nil {
			return err
		}
		sess.recon.BindTransaction(txn.ID)
		ctx = s.logg.WithTransactionID(ctx, txn.ID.String())
		s.logg.Info(s.logg.WithFields(s.logg.WithSessionID(ctx, sess.recon.ID), map[string]any{
			"fields_mode": string(sess.mode),
			"email":       input.Email,
			"phone":       input.Phone,
		}), "checkout.transaction_created")
	}
	sess.step = StepDeliveryInfo
	if !sess.mode.HasDeliveryStep() {
		sess.step = maxStep(sess.mode)
	}
	return nil
}

// Pay issues the PIX charge for the session and starts reconciliation. Paying
// twice returns the charge already issued.
func (s *Service) Pay(ctx context.Context, sessionID string, input PayInput) (*Payment, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.step < maxStep(sess.mode) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout is not at the payment step")
	}
	if sess.payment != nil {
		return sess.payment, nil
	}

	settings, err := s.settings.Load(ctx)
	if err != nil {
		return nil, err
	}
	selected, err := s.upsells.Selected(ctx, input.UpsellIDs)
	if err != nil {
		return nil, err
	}
	total := settings.MainProductPrice
	for _, offer := range selected {
		total = total.Add(offer.Price)
	}
	amount := money.ToMinor(total)
	if amount < money.MinPixAmountMinor {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, minimumAmountMsg).
			WithDetails(map[string]any{"minimum": money.MinPixAmountMinor, "amount": amount})
	}

	txnID := sess.recon.TransactionID()
	ctx = s.logg.WithFields(ctx, map[string]any{"session_id": sess.recon.ID, "transaction_id": txnID.String()})

	intent, err := s.provider.CreatePaymentIntent(ctx, amount, s.opts.WebhookURL)
	if err != nil {
		s.logg.Error(ctx, "checkout.create_intent_failed", err)
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeProvider, err, "create pix charge")
	}

	charged := money.FromMinor(amount)
	upsellAdded := len(selected) > 0
	if _, err := s.transactions.AttachIntent(ctx, txnID, transactions.AttachIntentInput{
		PixID:       intent.ProviderID,
		TotalValue:  charged,
		UpsellAdded: upsellAdded,
	}); err != nil {
		return nil, err
	}
	sess.recon.BindIntent(intent.ProviderID, charged)
	sess.payment = &Payment{
		PixID:        intent.ProviderID,
		CopiaCola:    intent.PayableCode,
		QRCode:       intent.QRImage,
		Total:        charged,
		TotalDisplay: money.FormatBRL(charged),
		UpsellAdded:  upsellAdded,
	}

	ctx = s.logg.WithProviderID(ctx, intent.ProviderID)
	if sess.recon.ClaimCheckoutInitiated() {
		if err := s.tracker.TrackCheckoutInitiated(context.WithoutCancel(ctx), sess.recon, upsellAdded); err != nil {
			s.logg.Warn(ctx, "checkout.initiate_checkout_not_tracked")
		}
	}
	if err := s.coordinator.Start(ctx, sess.recon); err != nil {
		s.logg.Error(ctx, "checkout.reconciliation_start_failed", err)
	}
	s.logg.Info(ctx, "checkout.pix_issued")
	return sess.payment, nil
}

// Status reports the stored transaction status and whether Purchase already fired.
func (s *Service) Status(ctx context.Context, sessionID string) (*StatusView, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	txnID := sess.recon.TransactionID()
	if txnID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout has no transaction yet")
	}
	txn, err := s.transactions.Get(ctx, txnID)
	if err != nil {
		return nil, err
	}
	s.coordinator.Touch(sess.recon.ID)
	return &StatusView{
		SessionID:       sess.recon.ID,
		TransactionID:   txn.ID,
		Status:          txn.Status,
		PurchaseTracked: sess.recon.PurchaseTracked(),
	}, nil
}

// Close tears the session down. Closing an unknown session is a no-op.
func (s *Service) Close(_ context.Context, sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	s.coordinator.Stop(sessionID)
}

// TrackAddToCart records the buyer ticking an upsell on the payment step.
func (s *Service) TrackAddToCart(ctx context.Context, sessionID string, upsellID uuid.UUID) error {
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	if sess.recon.TransactionID() == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "checkout has no transaction yet")
	}
	selected, err := s.upsells.Selected(ctx, []uuid.UUID{upsellID})
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "upsell not found")
	}
	offer := selected[0]
	return s.tracker.TrackAddToCart(ctx, sess.recon, offer.Offer.ID, offer.Offer.Title, offer.Price)
}

// ExpireIdle drops sessions idle past the TTL and returns how many were removed.
func (s *Service) ExpireIdle() int {
	cutoff := s.now().Add(-s.opts.SessionTTL)
	var expired []string
	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.recon.IdleSince().Before(cutoff) {
			expired = append(expired, id)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()
	for _, id := range expired {
		s.coordinator.Stop(id)
	}
	return len(expired)
}

// Run expires idle sessions every interval until ctx is done.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.ExpireIdle(); n > 0 {
				s.logg.Info(s.logg.WithField(ctx, "expired", n), "checkout.sessions_expired")
			}
		}
	}
}

func (s *Service) session(id string) (*session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "checkout session %q not found", id)
	}
	sess.recon.Touch(s.now())
	return sess, nil
}

func (s *session) view() View {
	v := View{
		SessionID:  s.recon.ID,
		Step:       s.step.name(s.mode),
		StepIndex:  int(s.step),
		FieldsMode: s.mode,
		Payment:    s.payment,
	}
	if id := s.recon.TransactionID(); id != uuid.Nil {
		v.TransactionID = &id
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
