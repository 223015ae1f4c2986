package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type countingHandler struct {
	calls int
	errs  []error
	seen  []string
}

func (h *countingHandler) Topic() string { return "analysis.requests" }

func (h *countingHandler) Handle(ctx context.Context, b []byte) error {
	h.calls++
	h.seen = append(h.seen, TraceID(ctx))
	if len(h.errs) == 0 {
		return nil
	}
	err := h.errs[0]
	h.errs = h.errs[1:]
	return err
}

func newTestConsumer(t *testing.T, retries int) *Consumer {
	t.Helper()
	c, err := NewConsumer(
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerRetry(retries, time.Millisecond, 2*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}
	return c
}

func TestHandleWithRetry(t *testing.T) {
	transient := errors.New("store unavailable")

	tests := []struct {
		name         string
		errs         []error
		retries      int
		wantAttempts int
		wantErr      bool
	}{
		{"success first try", nil, 3, 1, false},
		{"recovers after transient", []error{transient, transient}, 3, 3, false},
		{"gives up after retries", []error{transient, transient, transient}, 2, 3, true},
		{"permanent is not retried", []error{Permanent(transient)}, 3, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestConsumer(t, tt.retries)
			h := &countingHandler{errs: tt.errs}
			attempts, err := c.handleWithRetry(h, kafka.Message{Value: []byte("{}")})
			if attempts != tt.wantAttempts {
				t.Fatalf("attempts = %d, want %d", attempts, tt.wantAttempts)
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHandleWithRetryHooks(t *testing.T) {
	c := newTestConsumer(t, 3)
	c.WithConsumerHook(NewHookChain(RejectEmptyHook(), TraceHook()))

	h := &countingHandler{}
	attempts, err := c.handleWithRetry(h, kafka.Message{})
	var he *HookError
	if !errors.As(err, &he) || he.Code != "ERR_EMPTY" {
		t.Fatalf("want ERR_EMPTY hook error, got %v", err)
	}
	if attempts != 1 || h.calls != 0 {
		t.Fatalf("empty message should not reach handler: attempts=%d calls=%d", attempts, h.calls)
	}

	km := kafka.Message{
		Value:   []byte(`{"snapshot":{}}`),
		Headers: []kafka.Header{{Key: "trace_id", Value: []byte("t-1")}},
	}
	if _, err := c.handleWithRetry(h, km); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.seen) != 1 || h.seen[0] != "t-1" {
		t.Fatalf("trace id not propagated: %v", h.seen)
	}
}

func TestHandlerPanicIsPermanent(t *testing.T) {
	c := newTestConsumer(t, 3)
	h := HookFuncs{Before: func(ctx context.Context, _ string, km kafka.Message, b []byte) (context.Context, kafka.Message, []byte, error) {
		panic("boom")
	}}
	c.WithConsumerHook(h)

	attempts, err := c.handleWithRetry(&countingHandler{}, kafka.Message{Value: []byte("x")})
	if !IsPermanent(err) || attempts != 1 {
		t.Fatalf("attempts=%d err=%v", attempts, err)
	}
}

func TestHookChainRecoversPanics(t *testing.T) {
	var order []string
	chain := NewHookChain(
		HookFuncs{
			Before: func(ctx context.Context, _ string, km kafka.Message, b []byte) (context.Context, kafka.Message, []byte, error) {
				order = append(order, "before-1")
				return ctx, km, b, nil
			},
			After: func(context.Context, string, kafka.Message, []byte, error) { order = append(order, "after-1") },
		},
		nil,
		HookFuncs{
			After: func(context.Context, string, kafka.Message, []byte, error) {
				order = append(order, "after-2")
				panic("ignored")
			},
		},
	)

	ctx, _, _, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{}, []byte("x"))
	if err != nil {
		t.Fatalf("before: %v", err)
	}
	chain.AfterHandle(ctx, "t", kafka.Message{}, nil, nil)

	want := []string{"before-1", "after-2", "after-1"}
	if len(order) != len(want) {
		t.Fatalf("order = %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestBackoffWithJitter(t *testing.T) {
	min, max := 10*time.Millisecond, 80*time.Millisecond
	for attempt := 1; attempt <= 10; attempt++ {
		d := backoffWithJitter(min, max, attempt)
		if d <= 0 || d > max {
			t.Fatalf("attempt %d: backoff %v out of range", attempt, d)
		}
	}
}

func TestBuildMessage(t *testing.T) {
	km, err := buildMessage("verdicts", Message{
		Key:     []byte("AAPL"),
		Value:   map[string]string{"verdict": "PROCEED"},
		Headers: map[string]string{"verdict": "PROCEED", "content_type": "application/json"},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if string(km.Value) != `{"verdict":"PROCEED"}` {
		t.Fatalf("value = %s", km.Value)
	}
	if len(km.Headers) != 2 || km.Headers[0].Key != "content_type" {
		t.Fatalf("headers = %+v", km.Headers)
	}
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	if _, err := NewProducer(); err == nil {
		t.Fatalf("expected error without brokers")
	}
	if _, err := NewConsumer(); err == nil {
		t.Fatalf("expected error without brokers")
	}
}
