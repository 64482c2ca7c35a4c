package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"
)

type post struct {
	tag  string
	data map[string]interface{}
}

type fakePoster struct {
	mu    sync.Mutex
	posts []post
	err   error
}

func (p *fakePoster) Post(tag string, message interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.posts = append(p.posts, post{tag: tag, data: message.(map[string]interface{})})
	return p.err
}

func TestFluentHandler_PostsRecords(t *testing.T) {
	sink := &fakePoster{}
	logger := slog.New(NewFluentHandler(sink, slog.LevelInfo))

	logger.Debug("hidden")
	logger.With("service", "usergate").WithGroup("req").Warn("slow request",
		"path", "/api/users",
		"elapsed", 2*time.Second,
		"error", errors.New("deadline"),
	)

	if len(sink.posts) != 1 {
		t.Fatalf("posts = %d, want 1", len(sink.posts))
	}
	got := sink.posts[0]
	if got.tag != "warn" {
		t.Errorf("tag = %q, want warn", got.tag)
	}
	want := map[string]interface{}{
		"service":     "usergate",
		"req.path":    "/api/users",
		"req.elapsed": "2s",
		"req.error":   "deadline",
		"message":     "slow request",
		"level":       "warn",
	}
	for k, v := range want {
		if got.data[k] != v {
			t.Errorf("data[%q] = %v, want %v", k, got.data[k], v)
		}
	}
	if _, ok := got.data["timestamp"]; !ok {
		t.Error("timestamp missing")
	}
}

func TestFluentHandler_IgnoresPostErrors(t *testing.T) {
	sink := &fakePoster{err: errors.New("connection refused")}
	h := NewFluentHandler(sink, nil)

	logger := slog.New(h)
	logger.Error("boom")

	if len(sink.posts) != 1 || sink.posts[0].tag != "error" {
		t.Fatalf("posts = %+v", sink.posts)
	}
}

func TestNew_WithSinkTeesRecords(t *testing.T) {
	var buf bytes.Buffer
	sink := &fakePoster{}
	logger := New(Options{Level: "info", Format: FormatJSON, Output: &buf, Sink: sink})

	logger.Info("user_created", Email("a@example.com"))

	if buf.Len() == 0 {
		t.Error("primary output is empty")
	}
	if len(sink.posts) != 1 {
		t.Fatalf("posts = %d, want 1", len(sink.posts))
	}
	if sink.posts[0].data["email_fp"] != EmailFingerprint("a@example.com") {
		t.Errorf("email_fp = %v", sink.posts[0].data["email_fp"])
	}
}

func TestNewFluentClient_RequiresTagPrefix(t *testing.T) {
	if _, err := NewFluentClient(FluentConfig{Host: "127.0.0.1", Port: 24224}); err == nil {
		t.Fatal("expected error for empty tag prefix")
	}
}
