// Package app wires the delivery pipeline together: config, logging, the
// browser session, the dispatcher, and the optional HTTP/notify/pprof
// services.
package app

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"time"

	"github.com/Anant-tripathi/WABulkMessenger/internal/automation"
	"github.com/Anant-tripathi/WABulkMessenger/internal/automation/chrome"
	"github.com/Anant-tripathi/WABulkMessenger/internal/config"
	"github.com/Anant-tripathi/WABulkMessenger/internal/dispatch"
	"github.com/Anant-tripathi/WABulkMessenger/internal/eventbus"
	"github.com/Anant-tripathi/WABulkMessenger/internal/httpapi"
	"github.com/Anant-tripathi/WABulkMessenger/internal/notify"
	obspprof "github.com/Anant-tripathi/WABulkMessenger/internal/observability/pprof"
	rtsup "github.com/Anant-tripathi/WABulkMessenger/internal/runtime/supervisor"
	"github.com/Anant-tripathi/WABulkMessenger/internal/staging"
	"github.com/Anant-tripathi/WABulkMessenger/internal/store"
	logx "github.com/Anant-tripathi/WABulkMessenger/pkg/logx"
)

type App struct {
	cfgPath string

	cfgm *config.Manager
	sup  *rtsup.Supervisor

	logs *logx.Service
	log  logx.Logger

	bus eventbus.Bus

	surface    *chrome.Surface
	session    *automation.Session
	dispatcher *dispatch.Service
	staged     *staging.Store
	lists      store.Store

	api     *httpapi.Service
	apiCfg  httpapi.Config
	apiDeps httpapi.Deps

	notif *notify.Service
	prof  *obspprof.Service

	pattern *regexp.Regexp
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLogging(cfg))
	log = log.With(logx.String("comp", "app"))

	pattern, err := compileContactPattern(cfg)
	if err != nil {
		return nil, err
	}

	chromeCfg, sessCfg, err := mapBrowser(cfg)
	if err != nil {
		return nil, err
	}
	surface := chrome.New(chromeCfg, log.With(logx.String("comp", "chrome")))
	session := automation.NewSession(sessCfg, surface, log.With(logx.String("comp", "session")))

	bus := eventbus.New()

	dispCfg, err := mapDispatch(cfg)
	if err != nil {
		return nil, err
	}
	pacing, err := buildPacing(dispCfg)
	if err != nil {
		return nil, err
	}
	dispatcher := dispatch.New(dispCfg, session, pacing, log.With(logx.String("comp", "dispatch")), bus)

	stagingCfg, err := mapStaging(cfg)
	if err != nil {
		return nil, err
	}
	staged, err := staging.New(stagingCfg, log.With(logx.String("comp", "staging")))
	if err != nil {
		return nil, err
	}

	storeCfg, err := mapStore(cfg)
	if err != nil {
		return nil, err
	}
	lists, err := store.Open(storeCfg, log.With(logx.String("comp", "store")))
	if err != nil {
		return nil, err
	}

	apiCfg, err := mapHTTP(cfg)
	if err != nil {
		return nil, err
	}
	apiDeps := httpapi.Deps{
		Dispatcher:     dispatcher,
		Session:        session,
		Staging:        staged,
		Store:          lists,
		ContactPattern: pattern,
	}
	api := httpapi.New(apiCfg, apiDeps, log.With(logx.String("comp", "http")))

	notif := notify.New(mapNotify(cfg), log.With(logx.String("comp", "notify")), bus)
	prof := obspprof.New(mapPprof(cfg), log.With(logx.String("comp", "pprof")))

	return &App{
		cfgPath:    cfgPath,
		cfgm:       cfgm,
		logs:       logSvc,
		log:        log,
		bus:        bus,
		surface:    surface,
		session:    session,
		dispatcher: dispatcher,
		staged:     staged,
		lists:      lists,
		api:        api,
		apiCfg:     apiCfg,
		apiDeps:    apiDeps,
		notif:      notif,
		prof:       prof,
		pattern:    pattern,
	}, nil
}

// Done is closed when the run context is cancelled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.NewSupervisor(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(c context.Context, cfg *config.Config) error {
		return validateConfig(cfg)
	})

	if err := a.staged.Start(); err != nil {
		return err
	}

	// The browser session comes up before anything that could enqueue work.
	// If the operator has not linked the device yet, the session logs the QR
	// hint and deliveries fail with a readiness error until login completes.
	if err := a.session.Start(a.sup.Context()); err != nil {
		return fmt.Errorf("browser session: %w", err)
	}

	a.dispatcher.Start(a.sup.Context())

	if a.api.Enabled() {
		if err := a.api.Start(a.sup.Context()); err != nil {
			return err
		}
	}
	if a.notif.Enabled() {
		if err := a.notif.Start(a.sup.Context()); err != nil {
			a.log.Warn("notify start failed; continuing without it", logx.Any("err", err))
		}
	}
	a.prof.Start(a.sup.Context())

	// hot reload fan-out
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config.
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				a.applyConfig(c, newCfg)
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started")
	return nil
}

// applyConfig pushes a validated config revision into the live components.
// The browser, staging and store sections are boot-time only; changes there
// take effect on the next restart.
func (a *App) applyConfig(ctx context.Context, cfg *config.Config) {
	a.logs.Apply(mapLogging(cfg))

	if dispCfg, err := mapDispatch(cfg); err == nil {
		a.dispatcher.Apply(dispCfg)
	} else {
		a.log.Warn("dispatch config not applied", logx.Any("err", err))
	}

	a.notif.Apply(mapNotify(cfg))
	if a.notif.Enabled() {
		if err := a.notif.Start(ctx); err != nil {
			a.log.Warn("notify start failed", logx.Any("err", err))
		}
	} else {
		a.notif.Stop(ctx)
	}

	a.prof.Reconfigure(ctx, mapPprof(cfg))

	// The HTTP listener restarts only when its own section changed.
	if apiCfg, err := mapHTTP(cfg); err == nil && !reflect.DeepEqual(apiCfg, a.apiCfg) {
		a.api.Stop(ctx)
		a.apiCfg = apiCfg
		a.api = httpapi.New(apiCfg, a.apiDeps, a.log.With(logx.String("comp", "http")))
		if a.api.Enabled() {
			if err := a.api.Start(ctx); err != nil {
				a.log.Error("http restart failed", logx.Any("err", err))
			}
		}
	}

	if pattern, err := compileContactPattern(cfg); err == nil {
		a.pattern = pattern
		a.apiDeps.ContactPattern = pattern
	}

	a.log.Info("config applied")
}

// validateConfig rejects a reload before it is committed. Boot-time-only
// sections are still checked so a broken file is caught early.
func validateConfig(cfg *config.Config) error {
	if _, err := mapHTTP(cfg); err != nil {
		return err
	}
	if _, _, err := mapBrowser(cfg); err != nil {
		return err
	}
	dc, err := mapDispatch(cfg)
	if err != nil {
		return err
	}
	if _, err := buildPacing(dc); err != nil {
		return err
	}
	if _, err := mapStaging(cfg); err != nil {
		return err
	}
	if _, err := mapStore(cfg); err != nil {
		return err
	}
	if _, err := compileContactPattern(cfg); err != nil {
		return err
	}
	if cfg.Notify != nil && cfg.Notify.Enabled {
		if cfg.Notify.Token == "" || cfg.Notify.ChatID == 0 {
			return fmt.Errorf("notify: enabled requires token and chat_id")
		}
	}
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping")

	// Cancel the run context first so background loops start unwinding.
	a.sup.Cancel()

	// step bounds one shutdown phase so a stuck component can't stall the
	// whole stop. fn must honor its context.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()

		stepCtx := ctx
		var cancel context.CancelFunc
		if max > 0 {
			if dl, ok := ctx.Deadline(); ok {
				if rem := time.Until(dl); rem <= 0 {
					max = 0
				} else if rem < max {
					max = rem
				}
			}
			if max > 0 {
				stepCtx, cancel = context.WithTimeout(ctx, max)
				defer cancel()
			}
		}

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Any("err", err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.Duration("elapsed", time.Since(start)),
			)
		}
	}

	// Outer surfaces first, then the pipeline, then the browser itself.
	step("http", 2*time.Second, func(c context.Context) error { a.api.Stop(c); return nil })
	step("notify", 1*time.Second, func(c context.Context) error { a.notif.Stop(c); return nil })
	step("dispatch", 5*time.Second, func(c context.Context) error { a.dispatcher.Stop(c); return nil })
	step("session", 5*time.Second, func(c context.Context) error { return a.session.Close(c) })
	step("staging", 2*time.Second, func(c context.Context) error { a.staged.Stop(); return nil })
	if a.lists != nil {
		step("store", 1*time.Second, func(c context.Context) error { return a.lists.Close() })
	}
	step("pprof", 1*time.Second, func(c context.Context) error { a.prof.Stop(c); return nil })
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })

	a.log.Info("stopped")
	return a.logs.Close()
}
