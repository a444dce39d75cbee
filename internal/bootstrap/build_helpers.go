package bootstrap

import (
	"log/slog"
	"time"

	"assistant/internal/advisory"
	"assistant/internal/chat"
	"assistant/internal/config"
	"assistant/internal/notify"
	"assistant/internal/prefs"
	"assistant/internal/responder"
)

func buildProvider(cfg config.Config, advisor *advisory.Engine, settings *prefs.SettingsStore) (responder.Provider, string) {
	if cfg.Provider.Kind != config.ProviderOpenAI {
		delay := time.Duration(cfg.Reply.MockDelayMS) * time.Millisecond
		return responder.NewMock(delay, advisor), ""
	}
	p := responder.NewOpenAI(responder.OpenAIConfig{
		BaseURL:       cfg.Provider.BaseURL,
		APIKey:        cfg.Provider.APIKey,
		Model:         cfg.Provider.Model,
		TimeoutMS:     cfg.Provider.TimeoutMS,
		MaxRetries:    cfg.Provider.MaxRetries,
		Temperature:   cfg.Provider.Temperature,
		ContextTokens: cfg.Provider.ContextTokens,
	}, func() chat.UserSettings {
		s, _ := settings.Load()
		return s
	})
	return p, p.CurrentModel()
}

func buildNotifier(logger *slog.Logger, ui notify.Notifier) notify.Notifier {
	logN := notify.Log{Logger: logger}
	if ui == nil {
		return logN
	}
	return notify.Multi{logN, ui}
}

// replyTimeout maps the config's milliseconds onto session.Options: zero keeps
// the store default and a negative value disables the bound.
func replyTimeout(ms int) time.Duration {
	if ms < 0 {
		return -1
	}
	return time.Duration(ms) * time.Millisecond
}
