// Package api exposes purchases, balances and reading sessions over HTTP.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"readingbot/pkg/errutil"
	"readingbot/pkg/money"
	"readingbot/services/catalog"
	"readingbot/services/payment"
	"readingbot/services/reading"
	"readingbot/services/webhook"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

type Purchases interface {
	CreatePurchase(ctx context.Context, userID, packageCode string) (*payment.Purchase, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*payment.Payment, error)
}

type Balances interface {
	Get(ctx context.Context, userID string) (int64, error)
}

type Readings interface {
	Start(ctx context.Context, userID, label string) (string, error)
	Get(ctx context.Context, sessionID string) (*reading.Session, error)
	Cancel(ctx context.Context, sessionID string) error
}

type Syncer interface {
	Sync(ctx context.Context, externalID string) (webhook.Outcome, error)
}

type Handler struct {
	catalog    *catalog.Catalog
	purchases  Purchases
	balances   Balances
	readings   Readings
	dispatcher reading.Dispatcher
	syncer     Syncer
}

type HandlerParams struct {
	fx.In
	Catalog    *catalog.Catalog
	Purchases  Purchases
	Balances   Balances
	Readings   Readings
	Dispatcher reading.Dispatcher
	Syncer     Syncer
}

func NewHandler(p HandlerParams) *Handler {
	return &Handler{
		catalog:    p.Catalog,
		purchases:  p.Purchases,
		balances:   p.Balances,
		readings:   p.Readings,
		dispatcher: p.Dispatcher,
		syncer:     p.Syncer,
	}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	v1 := r.Group("/v1")
	v1.GET("/packages", h.ListPackages)
	v1.POST("/purchases", h.CreatePurchase)
	v1.GET("/users/:id/payments", h.ListPayments)
	v1.GET("/users/:id/balance", h.GetBalance)
	v1.POST("/readings", h.StartReading)
	v1.GET("/readings/:id", h.GetReading)
	v1.POST("/readings/:id/cancel", h.CancelReading)
	v1.POST("/payments/:external_id/sync", h.SyncPayment)
}

type packageView struct {
	Code             string `json:"code"`
	EntitlementCount int    `json:"entitlement_count"`
	Price            string `json:"price"`
	Currency         string `json:"currency"`
	Description      string `json:"description"`
}

func (h *Handler) ListPackages(c *gin.Context) {
	list := h.catalog.List()
	out := make([]packageView, 0, len(list))
	for _, p := range list {
		out = append(out, packageView{
			Code:             p.Code,
			EntitlementCount: p.EntitlementCount,
			Price:            p.Price.Decimal(),
			Currency:         p.Price.Currency,
			Description:      p.Description,
		})
	}
	c.JSON(http.StatusOK, gin.H{"packages": out})
}

type purchaseRequest struct {
	UserID      string `json:"user_id" binding:"required"`
	PackageCode string `json:"package_code" binding:"required"`
}

func (h *Handler) CreatePurchase(c *gin.Context) {
	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid purchase request", err))
		return
	}

	purchase, err := h.purchases.CreatePurchase(c.Request.Context(), req.UserID, req.PackageCode)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, purchase)
}

type paymentView struct {
	ID         string         `json:"id"`
	ExternalID string         `json:"external_id,omitempty"`
	Amount     money.Money    `json:"amount"`
	Status     payment.Status `json:"status"`
	CreatedAt  string         `json:"created_at"`
}

func (h *Handler) ListPayments(c *gin.Context) {
	limit, err := parseLimit(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	payments, err := h.purchases.ListByUser(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		_ = c.Error(err)
		return
	}

	out := make([]paymentView, 0, len(payments))
	for _, p := range payments {
		out = append(out, paymentView{
			ID:         p.ID,
			ExternalID: p.External(),
			Amount:     p.Money(),
			Status:     p.Status,
			CreatedAt:  p.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	c.JSON(http.StatusOK, gin.H{"payments": out})
}

func (h *Handler) GetBalance(c *gin.Context) {
	userID := c.Param("id")
	balance, err := h.balances.Get(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "balance": balance})
}

type readingRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Label  string `json:"label"`
}

// StartReading opens a session and hands it to the dispatcher. A dispatch
// failure leaves the session in progress and is reported as 500.
func (h *Handler) StartReading(c *gin.Context) {
	var req readingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid reading request", err))
		return
	}

	ctx := c.Request.Context()
	sessionID, err := h.readings.Start(ctx, req.UserID, req.Label)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if err := h.dispatcher.Dispatch(ctx, sessionID); err != nil {
		_ = c.Error(errutil.Internal("dispatch reading session", err))
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"session_id": sessionID})
}

func (h *Handler) GetReading(c *gin.Context) {
	s, err := h.readings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) CancelReading(c *gin.Context) {
	if err := h.readings.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"session_id": c.Param("id"), "cancelled": true})
}

func (h *Handler) SyncPayment(c *gin.Context) {
	outcome, err := h.syncer.Sync(c.Request.Context(), c.Param("external_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"external_id": c.Param("external_id"), "outcome": outcome})
}

func parseLimit(c *gin.Context) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errutil.BadRequest("limit must be a positive integer", err,
			errutil.WithDetails(errutil.Detail{Field: "limit", Message: "positive integer expected"}))
	}
	if n > maxLimit {
		n = maxLimit
	}
	return n, nil
}
