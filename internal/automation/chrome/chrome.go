package chrome

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	logx "github.com/Anant-tripathi/WABulkMessenger/pkg/logx"
)

// Selectors the automation waits on. WhatsApp Web ships no stable API;
// these are the same CSS hooks the original automation used.
const (
	defaultLandingURL = "https://web.whatsapp.com"
	defaultSendURL    = "https://web.whatsapp.com/send"

	defaultComposerSel  = `div[contenteditable='true'][data-tab='10']`
	defaultAttachSel    = `div[title='Attach']`
	defaultFileInputSel = `input[accept="*"]`
	defaultSendIconSel  = `span[data-icon='send']`
)

type Config struct {
	LandingURL string
	SendURL    string

	// ExecPath overrides the Chrome binary; UserDataDir keeps the WhatsApp
	// login across restarts so the operator scans the QR code once.
	ExecPath    string
	UserDataDir string

	// Headless is off by default: the operator must be able to see the QR
	// code, and WhatsApp Web is hostile to headless fingerprints anyway.
	Headless bool

	// NavTimeout bounds page navigations. A wedged WhatsApp Web load must
	// not hold the delivery worker hostage.
	NavTimeout time.Duration

	// InputTimeout bounds the wait for the hidden file input after the
	// attach control was clicked. SettleDelay is the pause between upload
	// and pressing send, matching the original flow.
	InputTimeout time.Duration
	SettleDelay  time.Duration

	ComposerSel  string
	AttachSel    string
	FileInputSel string
	SendIconSel  string
}

func (c *Config) setDefaults() {
	if strings.TrimSpace(c.LandingURL) == "" {
		c.LandingURL = defaultLandingURL
	}
	if strings.TrimSpace(c.SendURL) == "" {
		c.SendURL = defaultSendURL
	}
	if c.NavTimeout <= 0 {
		c.NavTimeout = 30 * time.Second
	}
	if c.InputTimeout <= 0 {
		c.InputTimeout = 10 * time.Second
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = 3 * time.Second
	}
	if c.ComposerSel == "" {
		c.ComposerSel = defaultComposerSel
	}
	if c.AttachSel == "" {
		c.AttachSel = defaultAttachSel
	}
	if c.FileInputSel == "" {
		c.FileInputSel = defaultFileInputSel
	}
	if c.SendIconSel == "" {
		c.SendIconSel = defaultSendIconSel
	}
}

// Surface drives WhatsApp Web through a dedicated Chrome instance (CDP via
// chromedp). The browser outlives individual calls: its context is rooted in
// Background and released only by Close.
type Surface struct {
	cfg Config
	log logx.Logger

	mu            sync.Mutex
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

func New(cfg Config, log logx.Logger) *Surface {
	cfg.setDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Surface{cfg: cfg, log: log}
}

func (s *Surface) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.browserCtx != nil {
		s.mu.Unlock()
		return errors.New("browser already open")
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.cfg.Headless),
	)
	if s.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(s.cfg.ExecPath))
	}
	if s.cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(s.cfg.UserDataDir))
	}

	// Root in Background: the browser must survive the Open() call.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	bctx, bcancel := chromedp.NewContext(allocCtx)
	s.allocCancel = allocCancel
	s.browserCtx = bctx
	s.browserCancel = bcancel
	s.mu.Unlock()

	s.log.Info("launching browser", logx.String("url", s.cfg.LandingURL), logx.Bool("headless", s.cfg.Headless))
	return s.run(ctx, s.cfg.NavTimeout, chromedp.Navigate(s.cfg.LandingURL))
}

func (s *Surface) Compose(ctx context.Context, contactID, text string) error {
	u := s.cfg.SendURL + "?phone=" + url.QueryEscape(contactID) + "&text=" + url.QueryEscape(text)
	return s.run(ctx, s.cfg.NavTimeout, chromedp.Navigate(u))
}

func (s *Surface) AwaitReady(ctx context.Context, timeout time.Duration) error {
	return s.run(ctx, timeout, chromedp.WaitVisible(s.cfg.ComposerSel, chromedp.ByQuery))
}

func (s *Surface) SubmitText(ctx context.Context) error {
	return s.run(ctx, 0,
		chromedp.Focus(s.cfg.ComposerSel, chromedp.ByQuery),
		chromedp.KeyEvent(kb.Enter),
	)
}

func (s *Surface) AttachFile(ctx context.Context, path string, timeout time.Duration) error {
	if err := s.run(ctx, timeout,
		chromedp.WaitVisible(s.cfg.AttachSel, chromedp.ByQuery),
		chromedp.Click(s.cfg.AttachSel, chromedp.ByQuery),
	); err != nil {
		return err
	}
	// The file input exists in the DOM but stays hidden; wait for presence,
	// not visibility.
	if err := s.run(ctx, s.cfg.InputTimeout,
		chromedp.WaitReady(s.cfg.FileInputSel, chromedp.ByQuery),
		chromedp.SetUploadFiles(s.cfg.FileInputSel, []string{path}, chromedp.ByQuery),
	); err != nil {
		return err
	}
	// Let the upload preview settle before the send icon appears.
	return s.run(ctx, 0, chromedp.Sleep(s.cfg.SettleDelay))
}

func (s *Surface) ConfirmSend(ctx context.Context, timeout time.Duration) error {
	return s.run(ctx, timeout,
		chromedp.WaitVisible(s.cfg.SendIconSel, chromedp.ByQuery),
		chromedp.Click(s.cfg.SendIconSel, chromedp.ByQuery),
	)
}

func (s *Surface) Close(ctx context.Context) error {
	s.mu.Lock()
	bcancel := s.browserCancel
	acancel := s.allocCancel
	s.browserCtx = nil
	s.browserCancel = nil
	s.allocCancel = nil
	s.mu.Unlock()

	if bcancel != nil {
		bcancel()
	}
	if acancel != nil {
		acancel()
	}
	return nil
}

// run executes actions against the browser tab, bounded by timeout when > 0.
//
// The caller's ctx is only consulted up-front: an in-flight UI step runs to
// completion or timeout, never half-cancelled.
func (s *Surface) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	bctx := s.browserCtx
	s.mu.Unlock()
	if bctx == nil {
		return errors.New("browser not open")
	}

	runCtx := bctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(bctx, timeout)
		defer cancel()
	}
	return chromedp.Run(runCtx, actions...)
}
