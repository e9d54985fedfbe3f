package browser

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/logbook-automation/pkg/config"
)

func TestIsContextDestroyed(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"playwright navigation", errors.New("Execution context was destroyed, most likely because of a navigation"), true},
		{"rod lost context", errors.New("{-32000 Cannot find context with specified id }"), true},
		{"wrapped", fmt.Errorf("failed to click: %w", errors.New("execution context was destroyed")), true},
		{"closed browser", errors.New("websocket: close 1006 (abnormal closure)"), false},
		{"timeout", errors.New("context deadline exceeded"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsContextDestroyed(tt.err); got != tt.want {
				t.Errorf("IsContextDestroyed(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsTextSelector(t *testing.T) {
	tests := []struct {
		selector string
		literal  string
		ok       bool
	}{
		{"text=Simpan", "Simpan", true},
		{`text="Tambah Logbook"`, "Tambah Logbook", true},
		{"#btnSimpan", "", false},
		{"button:has-text('Simpan')", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			literal, ok := IsTextSelector(tt.selector)
			if ok != tt.ok || literal != tt.literal {
				t.Errorf("IsTextSelector(%q) = (%q, %v), want (%q, %v)", tt.selector, literal, ok, tt.literal, tt.ok)
			}
		})
	}
}

func TestNewPicksEngine(t *testing.T) {
	cfg := config.DefaultConfig().Browser

	for _, engine := range []string{"", "rod"} {
		cfg.Engine = engine
		l, err := New(&cfg, time.Second)
		if err != nil {
			t.Fatalf("engine %q: %v", engine, err)
		}
		if _, ok := l.(*RodLauncher); !ok {
			t.Errorf("engine %q: got %T, want *RodLauncher", engine, l)
		}
	}

	cfg.Engine = "playwright"
	l, err := New(&cfg, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := l.(*PlaywrightLauncher); !ok {
		t.Errorf("got %T, want *PlaywrightLauncher", l)
	}

	cfg.Engine = "chromedp"
	if _, err := New(&cfg, time.Second); err == nil {
		t.Error("expected an error for an unknown engine")
	}
}

func TestPlaywrightDialogReleased(t *testing.T) {
	p := &pwPage{}

	release := p.AcceptNextDialog(context.Background())
	if got := p.acceptDialogs.Load(); got != 1 {
		t.Fatalf("armed = %d, want 1", got)
	}
	release()
	release()
	if got := p.acceptDialogs.Load(); got != 0 {
		t.Errorf("after release = %d, want 0", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.AcceptNextDialog(ctx)
	cancel()
	deadline := time.Now().Add(time.Second)
	for p.acceptDialogs.Load() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := p.acceptDialogs.Load(); got != 0 {
		t.Errorf("after cancel = %d, want 0", got)
	}
}

func TestDefaultPageLoadIsBounded(t *testing.T) {
	if d := config.DefaultConfig().Browser.PageLoadTimeout; d <= 0 {
		t.Errorf("PageLoadTimeout = %s, want a bound", d)
	}
}
