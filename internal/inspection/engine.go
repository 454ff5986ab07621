package inspection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"inspect-mcp/internal/clock"
	"inspect-mcp/internal/metrics"
	"inspect-mcp/internal/model"
	"inspect-mcp/internal/override"
	"inspect-mcp/internal/report"
	"inspect-mcp/internal/store"
)

// PersistFailureHook is called when the store writes of an accepted submission
// fail. The override set for that submission stays in place; the hook is where a
// caller plugs its own retry or reconciliation policy.
type PersistFailureHook func(ctx context.Context, req SubmitRequest, err error)

// Engine ties scheduling, check evaluation, report reconciliation and the
// override ledger to one store.
type Engine struct {
	store      store.Store
	clock      clock.Clock
	ledger     *override.Ledger
	reconciler *report.Reconciler
	metrics    *metrics.Metrics
	scope      store.Scope
	inspector  string
	defaults   model.LightSettings
	onFailure  PersistFailureHook
	locker     report.Locker
}

// Option configures an Engine.
type Option func(*Engine)

func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

func WithLedger(l *override.Ledger) Option {
	return func(e *Engine) { e.ledger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithScope selects whose light settings the engine reads.
func WithScope(s store.Scope) Option {
	return func(e *Engine) { e.scope = s }
}

// WithInspector sets the inspector name used when a request carries none.
func WithInspector(name string) Option {
	return func(e *Engine) { e.inspector = name }
}

// WithDefaultSettings sets the light settings used when the store has none.
func WithDefaultSettings(s model.LightSettings) Option {
	return func(e *Engine) { e.defaults = s }
}

func WithPersistFailureHook(h PersistFailureHook) Option {
	return func(e *Engine) { e.onFailure = h }
}

// WithLocker serializes report find-or-create through l.
func WithLocker(l report.Locker) Option {
	return func(e *Engine) { e.locker = l }
}

// New creates an engine over st.
func New(st store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:    st,
		clock:    clock.System{},
		defaults: model.DefaultLightSettings(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.ledger == nil {
		e.ledger = override.NewLedger(override.DefaultTTL)
	}
	e.reconciler = report.NewReconciler(st, st, st, e.locker)
	return e
}

// Ledger exposes the override ledger.
func (e *Engine) Ledger() *override.Ledger {
	return e.ledger
}

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time {
	return e.clock.Now()
}

// KeyFor builds the override key of an equipment item.
func KeyFor(item model.Equipment) override.Key {
	return override.Key{Barcode: item.Barcode, ID: item.ID}
}

// FindEquipment resolves a scanned or typed code, trying barcode first and then id.
// A miss is reported as found == false, not as an error.
func (e *Engine) FindEquipment(ctx context.Context, code string) (model.Equipment, bool, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return model.Equipment{}, false, nil
	}

	item, err := e.store.FindEquipmentByBarcode(ctx, code)
	if err == nil {
		return item, true, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return model.Equipment{}, false, fmt.Errorf("failed to look up barcode %q: %w", code, err)
	}

	item, err = e.store.GetEquipment(ctx, code)
	if err == nil {
		return item, true, nil
	}
	if errors.Is(err, store.ErrNotFound) {
		log.Debug().Str("code", code).Msg("No equipment matches code")
		return model.Equipment{}, false, nil
	}
	return model.Equipment{}, false, fmt.Errorf("failed to look up id %q: %w", code, err)
}

// LightSettings loads the thresholds for the engine's scope, falling back to defaults.
func (e *Engine) LightSettings(ctx context.Context) (model.LightSettings, error) {
	s, err := e.store.LoadLightSettings(ctx, e.scope)
	if errors.Is(err, store.ErrNotFound) {
		return e.defaults, nil
	}
	if err != nil {
		return model.LightSettings{}, fmt.Errorf("failed to load light settings: %w", err)
	}
	return s, nil
}

// ErrReadOnlySettings is returned when the store cannot persist light settings.
var ErrReadOnlySettings = errors.New("store does not support saving light settings")

// SaveLightSettings stores s for the engine's scope.
func (e *Engine) SaveLightSettings(ctx context.Context, s model.LightSettings) error {
	w, ok := e.store.(store.SettingsWriter)
	if !ok {
		return ErrReadOnlySettings
	}
	if s.RedThreshold >= s.YellowThreshold {
		log.Warn().Int("red", s.RedThreshold).Int("yellow", s.YellowThreshold).
			Msg("Saving light settings where CAN_INSPECT can never show")
	}
	if err := w.SaveLightSettings(ctx, e.scope, s); err != nil {
		return fmt.Errorf("failed to save light settings: %w", err)
	}
	return nil
}
