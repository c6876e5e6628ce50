package hotkeys

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"

	"github.com/1broseidon/spacetile/internal/config"
	"github.com/1broseidon/spacetile/internal/reactor"
	"github.com/1broseidon/spacetile/internal/x11"
)

// Handler manages global keyboard shortcuts
type Handler struct {
	xu     *xgbutil.XUtil
	root   xproto.Window
	send   func(reactor.Event)
	logger *slog.Logger

	mu     sync.Mutex
	active []string
}

var ignoreModsOnce sync.Once

// NewHandler creates a hotkey handler that hands every triggered command
// to send. send runs on the X event goroutine.
func NewHandler(conn *x11.Connection, send func(reactor.Event), logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	ignoreModsOnce.Do(func() {
		configureIgnoreMods(conn.XUtil)
	})
	return &Handler{
		xu:     conn.XUtil,
		root:   conn.Root,
		send:   send,
		logger: logger.With("component", "hotkeys"),
	}
}

// Apply replaces the registered bindings. Keys that fail to grab are
// logged and skipped; the error reports how many failed.
func (h *Handler) Apply(bindings []config.Binding) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	keybind.Detach(h.xu, h.root)
	xproto.UngrabKey(h.xu.Conn(), xproto.GrabAny, h.root, xproto.ModMaskAny)
	h.active = h.active[:0]

	failed := 0
	for _, b := range bindings {
		cmd := b.Command
		key := b.Key
		err := h.RegisterFunc(key, func() {
			h.logger.Debug("hotkey triggered", "key", key, "command", cmd.Kind)
			h.send(reactor.Command{Command: cmd})
		})
		if err != nil {
			h.logger.Warn("failed to register hotkey", "key", key, "error", err)
			failed++
			continue
		}
		h.active = append(h.active, key)
	}
	sort.Strings(h.active)
	h.logger.Info("hotkeys registered", "count", len(h.active))
	if failed > 0 {
		return fmt.Errorf("%d of %d hotkeys could not be registered", failed, len(bindings))
	}
	return nil
}

// Active lists the keys currently grabbed.
func (h *Handler) Active() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.active...)
}

// RegisterFunc registers an arbitrary hotkey callback.
func (h *Handler) RegisterFunc(keySequence string, callback func()) error {
	return keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		callback()
	}).Connect(h.xu, h.root, keySequence, true)
}

func configureIgnoreMods(xu *xgbutil.XUtil) {
	// Always ignore CapsLock.
	caps := uint16(xproto.ModMaskLock)

	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}
	xevent.IgnoreMods = ignoreMasks(base)
}

// ignoreMasks returns every combination of the lock modifiers in base,
// including none, so a binding fires whatever locks are on.
func ignoreMasks(base []uint16) []uint16 {
	unique := map[uint16]struct{}{0: {}}
	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		unique[mask] = struct{}{}
	}

	ignore := make([]uint16, 0, len(unique))
	for mask := range unique {
		ignore = append(ignore, mask)
	}
	sort.Slice(ignore, func(i, j int) bool { return ignore[i] < ignore[j] })
	return ignore
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
