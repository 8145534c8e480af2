package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/Anant-tripathi/WABulkMessenger/internal/dispatch"
	"github.com/Anant-tripathi/WABulkMessenger/internal/eventbus"
	logx "github.com/Anant-tripathi/WABulkMessenger/pkg/logx"
)

func TestEnabledRequiresTokenAndChat(t *testing.T) {
	cases := []struct {
		cfg  Config
		want bool
	}{
		{Config{Enabled: true, Token: "t", ChatID: 1}, true},
		{Config{Enabled: false, Token: "t", ChatID: 1}, false},
		{Config{Enabled: true, Token: "", ChatID: 1}, false},
		{Config{Enabled: true, Token: "t", ChatID: 0}, false},
	}
	for _, c := range cases {
		s := New(c.cfg, logx.Nop(), eventbus.New())
		if got := s.Enabled(); got != c.want {
			t.Fatalf("Enabled() = %v for %+v", got, c.cfg)
		}
	}
}

func TestFormatSummaryClean(t *testing.T) {
	st := dispatch.RunStatus{
		ID:        "run-1",
		Total:     3,
		Done:      3,
		StartedAt: time.Now().Add(-90 * time.Second),
		DoneAt:    time.Now(),
	}
	msg := formatSummary(eventbus.TypeRunFinished, st)
	if !strings.Contains(msg, "3/3 delivered") {
		t.Fatalf("summary = %q", msg)
	}
	if strings.Contains(msg, "failed") || strings.Contains(msg, "fatal") {
		t.Fatalf("clean run must not mention failures: %q", msg)
	}
	if !strings.Contains(msg, "run-1") {
		t.Fatalf("summary must include the run id: %q", msg)
	}
}

func TestFormatSummaryFailures(t *testing.T) {
	st := dispatch.RunStatus{ID: "run-2", Total: 5, Done: 5, Failed: 2}
	msg := formatSummary(eventbus.TypeRunFinished, st)
	if !strings.Contains(msg, "3/5 delivered") || !strings.Contains(msg, "2 failed") {
		t.Fatalf("summary = %q", msg)
	}
}

func TestFormatSummaryAborted(t *testing.T) {
	st := dispatch.RunStatus{ID: "run-3", Total: 10, Done: 4, Failed: 1, FatalError: "session closed"}
	msg := formatSummary(eventbus.TypeRunAborted, st)
	if !strings.Contains(msg, "aborted") || !strings.Contains(msg, "session closed") {
		t.Fatalf("summary = %q", msg)
	}
}
