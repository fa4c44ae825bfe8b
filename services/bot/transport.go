package bot

import (
	"context"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"readingbot/pkg/config"
	"readingbot/pkg/errutil"
	"readingbot/pkg/logger"
)

const pollTimeoutSeconds = 60

// RegisterRoutes exposes the endpoint Telegram posts updates to in webhook
// mode. Telegram retries non-2xx answers, so handler errors are only logged.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/telegram/update", func(c *gin.Context) {
		var upd tgbotapi.Update
		if err := c.ShouldBindJSON(&upd); err != nil {
			_ = c.Error(errutil.BadRequest("invalid update", err))
			return
		}

		if err := h.HandleUpdate(c.Request.Context(), upd); err != nil {
			logger.L(c.Request.Context()).Warn("failed to handle update",
				zap.Int("update_id", upd.UpdateID),
				zap.Error(err),
			)
		}
		c.Status(http.StatusOK)
	})
}

type updatesParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	Config    *config.Config
	API       *tgbotapi.BotAPI
	Handler   *Handler
}

// ReceiveUpdates registers the webhook when TELEGRAM.WEBHOOK_URL is set and
// falls back to long polling otherwise.
func ReceiveUpdates(p updatesParams) {
	if p.Config.Telegram.WebhookURL != "" {
		p.Lifecycle.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				wh, err := tgbotapi.NewWebhook(p.Config.Telegram.WebhookURL)
				if err != nil {
					return err
				}
				if _, err := p.API.Request(wh); err != nil {
					zap.L().Error("[Telegram] failed to set webhook", zap.Error(err))
					return err
				}
				zap.L().Info("[Telegram] webhook registered", zap.String("url", p.Config.Telegram.WebhookURL))
				return nil
			},
		})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if _, err := p.API.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
				zap.L().Warn("[Telegram] failed to delete webhook", zap.Error(err))
			}

			u := tgbotapi.NewUpdate(0)
			u.Timeout = pollTimeoutSeconds
			updates := p.API.GetUpdatesChan(u)

			go func() {
				defer close(done)
				for upd := range updates {
					if err := p.Handler.HandleUpdate(ctx, upd); err != nil {
						zap.L().Warn("failed to handle update", zap.Int("update_id", upd.UpdateID), zap.Error(err))
					}
				}
			}()

			zap.L().Info("[Telegram] long polling started")
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			p.API.StopReceivingUpdates()
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}
