// Package server exposes the sync/export pipeline over HTTP.
package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/rezonia/ksef-sync/internal/export"
	"github.com/rezonia/ksef-sync/internal/model"
	"github.com/rezonia/ksef-sync/internal/store"
	syncsvc "github.com/rezonia/ksef-sync/internal/sync"
)

// Config holds server configuration
type Config struct {
	Address      string
	ExportDir    string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Debug        bool
}

// Server is the HTTP API over the sync and export services
type Server struct {
	config    *Config
	router    *gin.Engine
	syncSvc   *syncsvc.Service
	exportSvc *export.Service
	invoices  store.InvoiceStore
	logger    zerolog.Logger
}

// NewServer creates the API server
func NewServer(config *Config, syncSvc *syncsvc.Service, exportSvc *export.Service, invoices store.InvoiceStore, logger zerolog.Logger) *Server {
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if config.Debug {
		router.Use(gin.Logger())
	}

	s := &Server{
		config:    config,
		router:    router,
		syncSvc:   syncSvc,
		exportSvc: exportSvc,
		invoices:  invoices,
		logger:    logger,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/entities/:id/sync", s.handleSync)
		v1.POST("/entities/:id/export", s.handleExport)
		v1.GET("/entities/:id/invoices", s.handleListInvoices)
		v1.POST("/invoices/:id/archive", s.handleArchiveInvoice)
		v1.GET("/entities/:id/batches", s.handleListBatches)
		v1.GET("/batches/:id", s.handleBatchDetails)
	}
}

// Run starts the HTTP server
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:         s.config.Address,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	return srv.ListenAndServe()
}

// Handler returns the http.Handler for tests and custom servers
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleSync(c *gin.Context) {
	entityID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	summary, err := s.syncSvc.Run(c.Request.Context(), syncsvc.RunParams{
		EntityID:   entityID,
		DateFrom:   req.DateFrom,
		DateTo:     req.DateTo,
		PageSize:   req.PageSize,
		PageNumber: req.PageNumber,
		Creds: syncsvc.Credentials{
			Password:  req.KsefPassword,
			KsefToken: req.KsefToken,
		},
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleExport(c *gin.Context) {
	entityID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	result, err := s.exportSvc.Export(c.Request.Context(), export.Params{
		EntityID:   entityID,
		UserID:     req.UserID,
		InvoiceIDs: req.InvoiceIDs,
		Format:     req.Format,
		OutputDir:  s.config.ExportDir,
	})
	if err != nil {
		// A written file with a failed ledger commit still reports the path
		if result != nil && result.FilePath != "" {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":     err.Error(),
				"file_path": result.FilePath,
			})
			return
		}
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleListInvoices(c *gin.Context) {
	entityID, ok := pathID(c, "id")
	if !ok {
		return
	}

	page := queryInt(c, "page", 1)
	perPage := queryInt(c, "per_page", 20)

	filter := model.InvoiceFilter{
		InvoiceNumber: c.Query("invoice_number"),
		SellerTaxID:   c.Query("seller_tax_id"),
		BuyerTaxID:    c.Query("buyer_tax_id"),
	}
	if from := c.Query("date_from"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			filter.DateFrom = &t
		}
	}
	if to := c.Query("date_to"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			filter.DateTo = &t
		}
	}

	invoices, err := s.invoices.ListByEntity(c.Request.Context(), entityID, filter, page, perPage)
	if err != nil {
		s.writeError(c, err)
		return
	}
	total, err := s.invoices.CountByEntity(c.Request.Context(), entityID, filter)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"invoices": invoices,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

func (s *Server) handleArchiveInvoice(c *gin.Context) {
	invoiceID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.invoices.Archive(c.Request.Context(), invoiceID, time.Now()); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListBatches(c *gin.Context) {
	entityID, ok := pathID(c, "id")
	if !ok {
		return
	}

	page := queryInt(c, "page", 1)
	perPage := queryInt(c, "per_page", 20)

	batches, total, err := s.exportSvc.Batches(c.Request.Context(), entityID, page, perPage)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"batches":  batches,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

func (s *Server) handleBatchDetails(c *gin.Context) {
	batchID, ok := pathID(c, "id")
	if !ok {
		return
	}
	entityID, err := strconv.ParseInt(c.Query("entity_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "entity_id query parameter is required"})
		return
	}

	batch, err := s.exportSvc.BatchDetails(c.Request.Context(), batchID, entityID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

// writeError maps pipeline errors onto HTTP statuses: validation problems
// are the caller's fault, remote API failures are a bad gateway.
func (s *Server) writeError(c *gin.Context, err error) {
	var authErr *model.AuthError
	var apiErr *model.APIError

	switch {
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, model.ErrUnsupportedFormat), errors.Is(err, model.ErrNoInvoices):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.As(err, &authErr):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error()})
	case errors.As(err, &apiErr):
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error()})
	default:
		s.logger.Error().Err(err).Msg("internal error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + name})
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, fallback int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil || v < 1 {
		return fallback
	}
	return v
}
