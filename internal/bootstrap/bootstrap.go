package bootstrap

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"assistant/internal/advisory"
	"assistant/internal/catalog"
	"assistant/internal/config"
	"assistant/internal/logging"
	"assistant/internal/notify"
	"assistant/internal/prefs"
	"assistant/internal/responder"
	"assistant/internal/session"
	"assistant/internal/storage"
)

// Options 构建时由 UI 注入的依赖
// Options carries what the UI injects at build time.
type Options struct {
	// Notifier receives toasts in addition to the log. Nil means log only.
	Notifier notify.Notifier
	// LogToStderr skips the log file; useful for one-shot commands and tests.
	LogToStderr bool
}

// BuildResult 与 UI 无关的构建结果，供 main 构造 REPL / TUI
// BuildResult is UI-agnostic; main uses it to construct the REPL or the wizard.
type BuildResult struct {
	Config    config.Config
	Logger    *slog.Logger
	KV        storage.KV
	Catalog   *catalog.Catalog
	Advisor   *advisory.Engine
	Provider  responder.Provider
	Favorites *prefs.Store
	Settings  *prefs.SettingsStore
	Chatbots  *prefs.ChatbotStore
	Briefing  *prefs.BriefingStore
	Sessions  *session.Store
	// Model is empty for the mock provider.
	Model string

	closers []io.Closer
}

// Build 按 配置 → 日志 → 存储 → 参考数据 → 偏好 → 回复 → 会话 的顺序初始化；调用方负责 defer result.Close()
// Build initializes config → logging → storage → catalog → prefs → responder → sessions.
// The caller must defer result.Close().
func Build(cfg config.Config, opts Options) (_ *BuildResult, err error) {
	res := &BuildResult{Config: cfg}
	defer func() {
		if err != nil {
			_ = res.Close()
		}
	}()

	logOpts := logging.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON}
	if !opts.LogToStderr {
		logOpts.Dir = cfg.LogDir()
	}
	logger, logCloser, err := logging.New(logOpts)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	res.Logger = logger
	res.closers = append(res.closers, logCloser)

	kv, err := storage.Open(cfg.Storage.Backend, cfg.Storage.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	res.KV = kv
	res.closers = append(res.closers, kv)

	cat, err := catalog.LoadDir(cfg.Catalog.Dir)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	res.Catalog = cat
	res.Advisor = advisory.New(cat)

	res.Favorites = prefs.NewStore(kv, logger)
	res.Settings = prefs.NewSettingsStore(kv, logger)
	res.Chatbots = prefs.NewChatbotStore(kv, cat.DefaultChatbots(), logger)
	res.Briefing = prefs.NewBriefingStore(kv, logger)

	res.Provider, res.Model = buildProvider(cfg, res.Advisor, res.Settings)

	res.Sessions = session.New(session.Options{
		KV:           kv,
		Provider:     res.Provider,
		Notifier:     buildNotifier(logger, opts.Notifier),
		Logger:       logger,
		ReplyTimeout: replyTimeout(cfg.Reply.TimeoutMS),
	})

	logger.Info("assistant ready",
		"provider", cfg.Provider.Kind,
		"model", res.Model,
		"storage", cfg.Storage.Backend,
		"base_dir", cfg.Storage.BaseDir,
	)
	return res, nil
}

// Close stops pending replies, then closes storage and the log file.
func (r *BuildResult) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.Sessions != nil {
		if err := r.Sessions.Close(); err != nil {
			errs = append(errs, err)
		}
		r.Sessions = nil
	}
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}
