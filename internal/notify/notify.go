// Package notify pushes run summaries to the operator over Telegram.
//
// The messenger itself talks to WhatsApp Web; Telegram is only the back
// channel telling the operator a long batch finished (or died) without
// keeping a terminal open. Disabled unless a bot token and chat are
// configured.
package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"github.com/Anant-tripathi/WABulkMessenger/internal/dispatch"
	"github.com/Anant-tripathi/WABulkMessenger/internal/eventbus"
	logx "github.com/Anant-tripathi/WABulkMessenger/pkg/logx"
)

type Config struct {
	Enabled    bool
	Token      string
	ChatID     int64
	RatePerMin int
}

type Service struct {
	mu  sync.Mutex
	cfg Config
	log logx.Logger
	bus eventbus.Bus

	bot     *tele.Bot
	limiter *rate.Limiter

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg Config, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{log: log, bus: bus}
	s.applyLocked(cfg)
	return s
}

func (s *Service) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Enabled && strings.TrimSpace(s.cfg.Token) != "" && s.cfg.ChatID != 0
}

func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.applyLocked(cfg)
	s.mu.Unlock()
}

func (s *Service) applyLocked(cfg Config) {
	if cfg.RatePerMin <= 0 {
		cfg.RatePerMin = 10
	}
	s.cfg = cfg
	s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMin)), cfg.RatePerMin)
}

// Start connects the bot and begins forwarding run events. No-op when the
// service is not configured.
func (s *Service) Start(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}

	s.mu.Lock()
	token := s.cfg.Token
	running := s.cancel != nil
	s.mu.Unlock()
	if running {
		return nil
	}

	bot, err := tele.NewBot(tele.Settings{Token: token})
	if err != nil {
		return fmt.Errorf("telegram bot: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.bot = bot
	s.cancel = cancel
	s.mu.Unlock()

	events, unsub := s.bus.Subscribe(32)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer unsub()
		for {
			select {
			case <-runCtx.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				s.handle(e)
			}
		}
	}()

	s.log.Info("operator notifications enabled", logx.Int64("chat_id", s.cfg.ChatID))
	return nil
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.bot = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (s *Service) handle(e eventbus.Event) {
	if e.Type != eventbus.TypeRunFinished && e.Type != eventbus.TypeRunAborted {
		return
	}
	st, ok := e.Data.(dispatch.RunStatus)
	if !ok {
		return
	}

	s.mu.Lock()
	bot := s.bot
	chatID := s.cfg.ChatID
	lim := s.limiter
	s.mu.Unlock()
	if bot == nil || chatID == 0 {
		return
	}
	if !lim.Allow() {
		s.log.Debug("notification dropped (rate cap)", logx.String("run", st.ID))
		return
	}

	if _, err := bot.Send(tele.ChatID(chatID), formatSummary(e.Type, st)); err != nil {
		s.log.Warn("operator notification failed", logx.String("run", st.ID), logx.Err(err))
	}
}

func formatSummary(typ string, st dispatch.RunStatus) string {
	var b strings.Builder
	switch typ {
	case eventbus.TypeRunAborted:
		b.WriteString("❌ Run aborted")
	default:
		if st.Failed > 0 {
			b.WriteString("⚠️ Run finished with failures")
		} else {
			b.WriteString("✅ Run finished")
		}
	}
	fmt.Fprintf(&b, "\n%d/%d delivered", st.Done-st.Failed, st.Total)
	if st.Failed > 0 {
		fmt.Fprintf(&b, ", %d failed", st.Failed)
	}
	if !st.StartedAt.IsZero() && !st.DoneAt.IsZero() {
		fmt.Fprintf(&b, "\ntook %s", st.DoneAt.Sub(st.StartedAt).Round(time.Second))
	}
	if st.FatalError != "" {
		fmt.Fprintf(&b, "\nfatal: %s", st.FatalError)
	}
	fmt.Fprintf(&b, "\nrun %s", st.ID)
	return b.String()
}
