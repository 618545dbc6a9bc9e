// Package lifecycle holds the declarative claim status machine. The machine
// only answers which trigger is legal from which status and where it lands;
// authorization, validation and side effects live in the application layer.
package lifecycle

import (
	"context"
	"fmt"

	"github.com/minhtran/claimflow/internal/domain/claim"
)

// GuardFunc evaluates whether a candidate transition should be taken
type GuardFunc func(ctx context.Context) bool

// Machine tracks the current claim status and validates transitions
type Machine interface {
	// State returns the current status
	State() claim.Status

	// CanFire returns true if the trigger has at least one transition configured
	// from the current status
	CanFire(trigger Trigger) bool

	// Fire attempts the trigger, moving to the target status if a transition
	// is configured and its guard (if any) passes
	Fire(ctx context.Context, trigger Trigger) error

	// PermittedTriggers returns all triggers configured for the current status
	PermittedTriggers() []Trigger
}

// Builder configures transitions per status and builds machine instances
type Builder interface {
	Configure(status claim.Status) StatusConfiguration
	Build(initial claim.Status) Machine
}

// StatusConfiguration configures transitions out of one status
type StatusConfiguration interface {
	Permit(trigger Trigger, to claim.Status) StatusConfiguration
	PermitIf(trigger Trigger, to claim.Status, guard GuardFunc) StatusConfiguration
}

type transition struct {
	to    claim.Status
	guard GuardFunc
}

type statusConfig struct {
	from        claim.Status
	transitions map[Trigger][]transition
}

type builder struct {
	configs map[claim.Status]*statusConfig
}

type machine struct {
	current claim.Status
	configs map[claim.Status]*statusConfig
}

// NewBuilder creates an empty machine builder
func NewBuilder() Builder {
	return &builder{configs: make(map[claim.Status]*statusConfig)}
}

func (b *builder) Configure(status claim.Status) StatusConfiguration {
	if !status.IsValid() {
		panic(fmt.Sprintf("invalid status: %s", status))
	}
	cfg, ok := b.configs[status]
	if !ok {
		cfg = &statusConfig{from: status, transitions: make(map[Trigger][]transition)}
		b.configs[status] = cfg
	}
	return cfg
}

func (b *builder) Build(initial claim.Status) Machine {
	if !initial.IsValid() {
		panic(fmt.Sprintf("invalid initial status: %s", initial))
	}

	// Copy configurations so built machines are isolated from later Configure calls
	copies := make(map[claim.Status]*statusConfig, len(b.configs))
	for status, cfg := range b.configs {
		tc := make(map[Trigger][]transition, len(cfg.transitions))
		for trigger, ts := range cfg.transitions {
			tc[trigger] = append([]transition{}, ts...)
		}
		copies[status] = &statusConfig{from: status, transitions: tc}
	}

	return &machine{current: initial, configs: copies}
}

func (c *statusConfig) Permit(trigger Trigger, to claim.Status) StatusConfiguration {
	return c.PermitIf(trigger, to, nil)
}

func (c *statusConfig) PermitIf(trigger Trigger, to claim.Status, guard GuardFunc) StatusConfiguration {
	if !to.IsValid() {
		panic(fmt.Sprintf("invalid target status: %s", to))
	}
	c.transitions[trigger] = append(c.transitions[trigger], transition{to: to, guard: guard})
	return c
}

func (m *machine) State() claim.Status {
	return m.current
}

func (m *machine) CanFire(trigger Trigger) bool {
	cfg, ok := m.configs[m.current]
	if !ok {
		return false
	}
	return len(cfg.transitions[trigger]) > 0
}

func (m *machine) Fire(ctx context.Context, trigger Trigger) error {
	cfg, ok := m.configs[m.current]
	if !ok {
		return fmt.Errorf("%w: trigger %s from status %s", ErrTransitionNotPermitted, trigger, m.current)
	}

	ts := cfg.transitions[trigger]
	if len(ts) == 0 {
		return fmt.Errorf("%w: trigger %s from status %s", ErrTransitionNotPermitted, trigger, m.current)
	}

	for _, t := range ts {
		if t.guard == nil || t.guard(ctx) {
			m.current = t.to
			return nil
		}
	}

	return fmt.Errorf("%w: trigger %s from status %s", ErrGuardFailed, trigger, m.current)
}

func (m *machine) PermittedTriggers() []Trigger {
	cfg, ok := m.configs[m.current]
	if !ok {
		return []Trigger{}
	}
	triggers := make([]Trigger, 0, len(cfg.transitions))
	for trigger := range cfg.transitions {
		triggers = append(triggers, trigger)
	}
	return triggers
}
