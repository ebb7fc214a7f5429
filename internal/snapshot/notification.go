package snapshot

import (
	"strings"
	"sync"
	"time"

	"marketpulse/internal/clock"
)

// NotificationType is the category of a dashboard-facing pulse.
type NotificationType string

const (
	NotifySmartSignal        NotificationType = "SMART_SIGNAL"
	NotifyReversal           NotificationType = "REVERSAL"
	NotifyBreakout           NotificationType = "BREAKOUT"
	NotifyCriticalVolatility NotificationType = "CRITICAL_VOLATILITY"
	NotifyNewListing         NotificationType = "NEW_LISTING"
)

// Notification is one pulse drained into the snapshot document.
type Notification struct {
	Type      NotificationType
	Symbol    string
	Message   string
	Timestamp time.Time
}

const (
	// DefaultBufferSize bounds the notification buffer (spec §4.6).
	DefaultBufferSize = 50
	// DefaultCooldown is the per-(type, symbol) suppression window.
	DefaultCooldown = time.Minute
)

// NotificationBuffer is a bounded, cooldown-gated queue of pending
// notifications, drained by each snapshot tick.
type NotificationBuffer struct {
	clock clock.Clock
	cfg   BufferConfig

	mu        sync.Mutex
	items     []Notification
	lastFired map[string]time.Time
}

// BufferConfig holds the buffer's size/cooldown and a per-type enable map.
//
// EnabledTypes is keyed by the operator-facing camelCase config name (e.g.
// "smartSignals", "reversals"). The buffer's own lookup key is derived from
// NotificationType by lower-casing and stripping underscores
// (SMART_SIGNAL -> "smartsignal"), which never equals a camelCase key —
// so typeEnabled's lookup always misses and every type passes regardless
// of EnabledTypes. Preserved as observed rather than reconciled.
type BufferConfig struct {
	MaxSize      int
	Cooldown     time.Duration
	EnabledTypes map[string]bool
}

// DefaultBufferConfig returns spec §4.6 defaults.
func DefaultBufferConfig() BufferConfig {
	return BufferConfig{MaxSize: DefaultBufferSize, Cooldown: DefaultCooldown}
}

// NewNotificationBuffer creates a NotificationBuffer.
func NewNotificationBuffer(c clock.Clock, cfg BufferConfig) *NotificationBuffer {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultBufferSize
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	return &NotificationBuffer{clock: c, cfg: cfg, lastFired: make(map[string]time.Time)}
}

// Push enqueues n if its type is enabled and its (type, symbol) pair is not
// in cooldown. Returns false if suppressed.
func (b *NotificationBuffer) Push(n Notification) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.typeEnabled(n.Type) {
		return false
	}

	key := string(n.Type) + ":" + n.Symbol
	now := b.clock.Now()
	if last, ok := b.lastFired[key]; ok && now.Sub(last) < b.cfg.Cooldown {
		return false
	}
	b.lastFired[key] = now

	b.items = append(b.items, n)
	if len(b.items) > b.cfg.MaxSize {
		b.items = b.items[len(b.items)-b.cfg.MaxSize:]
	}
	return true
}

// Drain returns and clears every buffered notification.
func (b *NotificationBuffer) Drain() []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.items
	b.items = nil
	return out
}

func (b *NotificationBuffer) typeEnabled(t NotificationType) bool {
	if len(b.cfg.EnabledTypes) == 0 {
		return true
	}
	key := normalizeTypeKey(t)
	enabled, found := b.cfg.EnabledTypes[key]
	if !found {
		return true
	}
	return enabled
}

func normalizeTypeKey(t NotificationType) string {
	return strings.ReplaceAll(strings.ToLower(string(t)), "_", "")
}
