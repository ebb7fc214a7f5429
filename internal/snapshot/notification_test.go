package snapshot

import (
	"testing"
	"time"

	"marketpulse/internal/clock"
)

func TestNotificationBuffer_CooldownSuppressesRepeat(t *testing.T) {
	fc := clock.NewFixed(time.Unix(0, 0))
	buf := NewNotificationBuffer(fc, DefaultBufferConfig())

	n := Notification{Type: NotifySmartSignal, Symbol: "AAAUSDT", Message: "first"}
	if !buf.Push(n) {
		t.Fatal("expected first push to succeed")
	}
	if buf.Push(n) {
		t.Error("expected repeat within cooldown to be suppressed")
	}

	fc.Advance(61 * time.Second)
	if !buf.Push(n) {
		t.Error("expected push after cooldown elapses to succeed")
	}
}

func TestNotificationBuffer_DifferentSymbolNotSuppressed(t *testing.T) {
	fc := clock.NewFixed(time.Unix(0, 0))
	buf := NewNotificationBuffer(fc, DefaultBufferConfig())

	buf.Push(Notification{Type: NotifySmartSignal, Symbol: "AAAUSDT"})
	if !buf.Push(Notification{Type: NotifySmartSignal, Symbol: "BBBUSDT"}) {
		t.Error("expected a different symbol to not be cooled down")
	}
}

func TestNotificationBuffer_BoundedSize(t *testing.T) {
	fc := clock.NewFixed(time.Unix(0, 0))
	buf := NewNotificationBuffer(fc, BufferConfig{MaxSize: 2, Cooldown: time.Millisecond})

	for i := 0; i < 5; i++ {
		buf.Push(Notification{Type: NotifySmartSignal, Symbol: "SYM", Message: "m"})
		fc.Advance(time.Second)
	}

	drained := buf.Drain()
	if len(drained) != 2 {
		t.Errorf("expected buffer bounded to 2, got %d", len(drained))
	}
}

func TestNotificationBuffer_Drain_ClearsBuffer(t *testing.T) {
	fc := clock.NewFixed(time.Unix(0, 0))
	buf := NewNotificationBuffer(fc, DefaultBufferConfig())
	buf.Push(Notification{Type: NotifyReversal, Symbol: "AAAUSDT"})

	first := buf.Drain()
	if len(first) != 1 {
		t.Fatalf("expected one drained notification, got %d", len(first))
	}
	second := buf.Drain()
	if len(second) != 0 {
		t.Errorf("expected buffer empty after drain, got %d", len(second))
	}
}

// TestNotificationBuffer_EnabledTypesLookupAlwaysMisses preserves the
// observed source behavior (spec §9 open question 1): the normalized
// lookup key never matches a camelCase config key, so every type passes
// regardless of what EnabledTypes says — including types explicitly set
// to false.
func TestNotificationBuffer_EnabledTypesLookupAlwaysMisses(t *testing.T) {
	fc := clock.NewFixed(time.Unix(0, 0))
	buf := NewNotificationBuffer(fc, BufferConfig{
		MaxSize:  DefaultBufferSize,
		Cooldown: DefaultCooldown,
		EnabledTypes: map[string]bool{
			"smartSignals": false,
		},
	})

	if !buf.Push(Notification{Type: NotifySmartSignal, Symbol: "AAAUSDT"}) {
		t.Error("expected the type to pass despite EnabledTypes disabling it, per the preserved normalization mismatch")
	}
}
