// Package telegram provides the Bot API client shared by the bot handlers
// and the scenario sender.
package telegram

import (
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"readingbot/pkg/config"
)

var Module = fx.Module("telegram",
	fx.Provide(New),
)

const requestTimeout = 30 * time.Second

// endpoint turns the configured base url into the "%s/%s" template the
// client expects (token, method).
func endpoint(apiURL string) string {
	if apiURL == "" {
		return tgbotapi.APIEndpoint
	}
	return strings.TrimRight(apiURL, "/") + "/bot%s/%s"
}

func New(cfg *config.Config) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPIWithClient(
		cfg.Telegram.BotToken,
		endpoint(cfg.Telegram.APIURL),
		&http.Client{Timeout: requestTimeout},
	)
	if err != nil {
		zap.L().Error("[Telegram] failed to authorize bot", zap.Error(err))
		return nil, err
	}

	api.Debug = cfg.LogLevel == "debug"
	zap.L().Info("[Telegram] authorized", zap.String("username", api.Self.UserName))
	return api, nil
}
