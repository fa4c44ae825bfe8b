package webhook

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"readingbot/pkg/errutil"
	"readingbot/pkg/logger"
)

const (
	SignatureHeader       = "Yookassa-Signature"
	legacySignatureHeader = "HTTP_YOOKASSA_SIGNATURE"

	maxPayloadBytes = 1 << 20
)

type Handler struct {
	verifier   *Verifier
	reconciler *Reconciler
}

func NewHandler(v *Verifier, r *Reconciler) *Handler {
	return &Handler{verifier: v, reconciler: r}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/webhooks/yookassa", h.Notify)
}

// Notify verifies the raw body before decoding it. Errors are attached to the
// gin context and rendered by the error middleware.
func (h *Handler) Notify(c *gin.Context) {
	ctx := c.Request.Context()

	signature := c.GetHeader(SignatureHeader)
	if signature == "" {
		signature = c.GetHeader(legacySignatureHeader)
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPayloadBytes))
	if err != nil {
		_ = c.Error(errutil.BadRequest("failed to read body", err))
		return
	}

	if err := h.verifier.Verify(payload, signature); err != nil {
		logger.L(ctx).Warn("rejected payment notification", zap.Error(err))
		eventsTotal.WithLabelValues("", "rejected").Inc()
		_ = c.Error(err)
		return
	}

	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		_ = c.Error(errutil.BadRequest("invalid JSON", errors.Join(ErrMalformedEvent, err)))
		return
	}

	outcome, err := h.reconciler.Handle(ctx, ev)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "outcome": outcome})
}
