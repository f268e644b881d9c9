// Package sync drives one ingestion run: list a page of invoice headers
// from KSeF, skip known reference numbers, fetch and normalize new
// documents, persist each invoice with its items atomically. One bad
// document never aborts a run; authentication failure always does.
package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rezonia/ksef-sync/internal/ksef"
	"github.com/rezonia/ksef-sync/internal/model"
	"github.com/rezonia/ksef-sync/internal/parser/fa"
	"github.com/rezonia/ksef-sync/internal/store"
)

// APIClient is the slice of the KSeF client the orchestrator needs
type APIClient interface {
	AuthenticateToken(ctx context.Context, identifier, token string) (*ksef.Session, error)
	AuthenticatePassword(ctx context.Context, nip, password string) (*ksef.Session, error)
	SetToken(token string)
	SessionStatus(ctx context.Context) (bool, error)
	ListInvoices(ctx context.Context, q ksef.ListQuery) (*ksef.ListResult, error)
	GetInvoiceXML(ctx context.Context, referenceNumber string) ([]byte, error)
}

// Normalizer converts one raw XML document into a canonical invoice
type Normalizer interface {
	Parse(rawXML []byte) (*model.Invoice, error)
}

// Credentials authenticate a run when the entity's stored token is missing
// or expired. Password takes precedence over the entity's KSeF token.
type Credentials struct {
	Password  string
	KsefToken string
}

// RunParams select the entity, date window and remote page for one run
type RunParams struct {
	EntityID   int64
	DateFrom   string // YYYY-MM-DD, default last 30 days
	DateTo     string // YYYY-MM-DD, default today
	PageSize   int
	PageNumber int
	Creds      Credentials
}

// Service orchestrates sync runs
type Service struct {
	entities   store.EntityStore
	invoices   store.InvoiceStore
	normalizer Normalizer
	logger     zerolog.Logger
	now        func() time.Time
	timeout    time.Duration

	// newClient builds the API client for an entity's environment; swapped
	// out by tests.
	newClient func(entity *model.Entity) APIClient
}

// NewService creates a sync service using the real KSeF client
func NewService(entities store.EntityStore, invoices store.InvoiceStore, logger zerolog.Logger) *Service {
	s := &Service{
		entities:   entities,
		invoices:   invoices,
		normalizer: fa.NewParser(),
		logger:     logger,
		now:        time.Now,
	}
	s.newClient = func(entity *model.Entity) APIClient {
		opts := []ksef.ClientOption{ksef.WithToken(entity.KsefToken)}
		if s.timeout > 0 {
			opts = append(opts, ksef.WithTimeout(s.timeout))
		}
		return ksef.NewClient(entity.KsefEnv, opts...)
	}
	return s
}

// WithTimeout sets the per-call timeout for clients built by the default
// factory (KSEF_HTTP_TIMEOUT). Zero keeps the client default.
func (s *Service) WithTimeout(timeout time.Duration) *Service {
	s.timeout = timeout
	return s
}

// WithClientFactory overrides how API clients are built. Used by tests and
// by callers that need custom HTTP transport settings.
func (s *Service) WithClientFactory(factory func(entity *model.Entity) APIClient) *Service {
	s.newClient = factory
	return s
}

// Run executes one sync run over a single remote page. Pagination across
// pages is the caller's concern: the summary carries HasMorePages and
// TotalCount so the caller can re-invoke with the next page number.
func (s *Service) Run(ctx context.Context, params RunParams) (*model.SyncSummary, error) {
	entity, err := s.entities.GetByID(ctx, params.EntityID)
	if err != nil {
		return nil, err
	}

	client := s.newClient(entity)
	if err := s.ensureSession(ctx, client, entity, params.Creds); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logger := s.logger.With().
		Str("run_id", runID).
		Int64("entity_id", entity.ID).
		Logger()

	page, err := client.ListInvoices(ctx, ksef.ListQuery{
		DateFrom:   params.DateFrom,
		DateTo:     params.DateTo,
		PageSize:   params.PageSize,
		PageNumber: params.PageNumber,
	})
	if err != nil {
		return nil, err
	}

	summary := &model.SyncSummary{
		RunID:        runID,
		Messages:     make(map[string]string),
		TotalCount:   page.TotalCount,
		HasMorePages: page.HasMorePages,
	}

	logger.Info().
		Int("candidates", len(page.Items)).
		Int("total_available", page.TotalCount).
		Bool("has_more", page.HasMorePages).
		Msg("sync run started")

	for _, header := range page.Items {
		s.processCandidate(ctx, client, entity, header.ReferenceNumber, summary, logger)
	}

	logger.Info().
		Int("processed", summary.Processed).
		Int("new", summary.New).
		Int("errors", summary.Errors).
		Msg("sync run finished")

	return summary, nil
}

// ensureSession reuses the entity's stored token when still valid locally
// and confirmed active by the service, otherwise authenticates with the
// supplied credentials and persists the new session onto the entity row.
func (s *Service) ensureSession(ctx context.Context, client APIClient, entity *model.Entity, creds Credentials) error {
	if entity.HasValidToken(s.now()) {
		client.SetToken(entity.KsefToken)
		active, err := client.SessionStatus(ctx)
		if err == nil && active {
			return nil
		}
		// Token rejected remotely or status unknown; treat it as expired
	}

	var (
		session *ksef.Session
		err     error
	)
	switch {
	case creds.Password != "":
		session, err = client.AuthenticatePassword(ctx, entity.TaxID, creds.Password)
	case creds.KsefToken != "":
		session, err = client.AuthenticateToken(ctx, entity.KsefIdentifier, creds.KsefToken)
	default:
		return model.NewAuthError("none", "stored session expired and no credentials supplied", nil)
	}
	if err != nil {
		return err
	}

	if err := s.entities.UpdateToken(ctx, entity.ID, session.Token, session.Expiry); err != nil {
		return fmt.Errorf("persist session token: %w", err)
	}
	entity.KsefToken = session.Token
	entity.KsefTokenExp = &session.Expiry
	return nil
}

func (s *Service) processCandidate(ctx context.Context, client APIClient, entity *model.Entity, referenceNumber string, summary *model.SyncSummary, logger zerolog.Logger) {
	summary.Processed++

	exists, err := s.invoices.ExistsByReference(ctx, referenceNumber)
	if err != nil {
		s.recordError(summary, logger, referenceNumber, fmt.Sprintf("failed to check local store: %v", err))
		return
	}
	if exists {
		// Already ingested; candidates are assumed unchanged once stored
		return
	}

	rawXML, err := client.GetInvoiceXML(ctx, referenceNumber)
	if err != nil {
		s.recordError(summary, logger, referenceNumber, fmt.Sprintf("failed to fetch XML: %v", err))
		return
	}

	inv, err := s.normalizer.Parse(rawXML)
	if err != nil {
		s.recordError(summary, logger, referenceNumber, fmt.Sprintf("failed to parse XML: %v", err))
		return
	}
	inv.EntityID = entity.ID
	if inv.ReferenceNumber == "" {
		inv.ReferenceNumber = referenceNumber
	}

	if err := s.invoices.CreateWithItems(ctx, inv); err != nil {
		s.recordError(summary, logger, referenceNumber, fmt.Sprintf("failed to store invoice: %v", err))
		return
	}

	summary.New++
	logger.Debug().Str("reference", referenceNumber).Msg("invoice ingested")
}

func (s *Service) recordError(summary *model.SyncSummary, logger zerolog.Logger, referenceNumber, message string) {
	summary.Errors++
	summary.Messages[referenceNumber] = message
	logger.Warn().Str("reference", referenceNumber).Msg(message)
}
