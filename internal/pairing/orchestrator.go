// Package pairing supervises the external pairing engine and books the
// servers and smart devices it pairs into the store.
package pairing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rustinsight/pairing-agent/internal/capture"
	"github.com/rustinsight/pairing-agent/internal/engine"
	"github.com/rustinsight/pairing-agent/pkg/logger"
	"github.com/rustinsight/pairing-agent/pkg/metrics"
)

// ErrLoginCancelled is returned by Start when the user backs out of the
// Steam login instead of completing it.
var ErrLoginCancelled = errors.New("Steam login was cancelled")

// errStopped is returned when Stop (or a concurrent Start) tears the engine
// down while Start is still waiting on the login.
var errStopped = errors.New("pairing was stopped")

// State of the orchestrator's single engine slot.
type State int

const (
	Idle State = iota
	Starting
	Listening
)

func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Listening:
		return "listening"
	}
	return "idle"
}

// TokenCapturer yields the registration token for a fresh engine.
type TokenCapturer interface {
	Capture(ctx context.Context, loginURL string) (string, error)
}

// Notifier receives the outbound pairing notifications.
type Notifier interface {
	Status(message string)
	Server(s *PairedServer)
	Entity(e *PairedEntity)
	Error(message string)
}

// Orchestrator owns at most one live engine instance at a time and wires its
// events into the repository and the notifier.
type Orchestrator struct {
	repo      Repository
	notifier  Notifier
	capturer  TokenCapturer
	newEngine engine.Factory
	loginURL  string

	mu       sync.Mutex
	active   engine.Engine
	loopDone chan struct{}
	state    State

	// Now can be overridden in tests.
	Now func() time.Time
}

func NewOrchestrator(repo Repository, notifier Notifier, capturer TokenCapturer, factory engine.Factory, loginURL string) *Orchestrator {
	return &Orchestrator{
		repo:      repo,
		notifier:  notifier,
		capturer:  capturer,
		newEngine: factory,
		loginURL:  loginURL,
		Now:       time.Now,
	}
}

// State reports the engine slot's current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Start replaces any active engine with a fresh one, captures a registration
// token and brings the engine to the listening state. Restart is
// destroy-then-create: the prior engine is torn down before the new one is
// constructed, so two engines never coexist. The supervising loop is
// consuming events before register/listen run, so nothing emitted during
// startup is lost. A cancelled login leaves the new engine constructed but
// unregistered, matching a user who closed the window and may retry.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	o.teardownLocked()
	eng, err := o.newEngine(ctx)
	if err != nil {
		// the slot stays Idle; the caller asked for a restart and got neither
		o.mu.Unlock()
		return fmt.Errorf("construct pairing engine: %w", err)
	}
	done := make(chan struct{})
	o.active = eng
	o.loopDone = done
	o.state = Starting
	o.mu.Unlock()

	go o.supervise(eng, done)

	o.notifier.Status("Opening Steam login...")
	token, err := o.capturer.Capture(ctx, o.loginURL)
	if err != nil {
		if errors.Is(err, capture.ErrCancelled) {
			return ErrLoginCancelled
		}
		return err
	}

	// A concurrent Stop/Start may have replaced the slot while the user was
	// logging in; in that case this engine is already destroyed.
	o.mu.Lock()
	if o.active != eng {
		o.mu.Unlock()
		return errStopped
	}
	o.mu.Unlock()

	if err := eng.Register(ctx, token); err != nil {
		return fmt.Errorf("register with pairing service: %w", err)
	}
	if err := eng.Listen(ctx); err != nil {
		return fmt.Errorf("start listening: %w", err)
	}

	o.mu.Lock()
	if o.active == eng {
		o.state = Listening
	}
	o.mu.Unlock()
	return nil
}

// Stop tears down the active engine. Stopping with no active engine is a
// no-op success.
func (o *Orchestrator) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.teardownLocked()
	return nil
}

// Close is the mandatory teardown on application exit.
func (o *Orchestrator) Close() error { return o.Stop() }

// teardownLocked destroys the active engine and waits for its supervising
// loop to drain. Caller holds o.mu.
func (o *Orchestrator) teardownLocked() {
	if o.active == nil {
		return
	}
	eng, done := o.active, o.loopDone
	o.active, o.loopDone = nil, nil
	o.state = Idle
	if err := eng.Destroy(); err != nil {
		logger.Warnf("pairing: engine teardown: %v", err)
	}
	<-done
}

// supervise consumes the engine's event channel until it closes on teardown.
func (o *Orchestrator) supervise(eng engine.Engine, done chan struct{}) {
	defer close(done)
	for ev := range eng.Events() {
		switch e := ev.(type) {
		case engine.Status:
			metrics.PairingEvents.WithLabelValues("status").Inc()
			o.notifier.Status(e.Message)
		case engine.ServerPaired:
			metrics.PairingEvents.WithLabelValues("server").Inc()
			o.handleServerPaired(e)
		case engine.EntityPaired:
			metrics.PairingEvents.WithLabelValues("entity").Inc()
			o.handleEntityPaired(e)
		case engine.Failure:
			metrics.PairingEvents.WithLabelValues("error").Inc()
			o.notifier.Error(e.Message)
		}
	}
}

func (o *Orchestrator) handleServerPaired(e engine.ServerPaired) {
	srv := &PairedServer{
		Name:        e.Name,
		IP:          e.IP,
		Port:        e.Port,
		PlayerID:    e.PlayerID,
		PlayerToken: e.PlayerToken,
		PairedAt:    o.Now().UnixMilli(),
	}
	if err := o.repo.UpsertServer(context.Background(), srv); err != nil {
		logger.Errorf("pairing: persist server %s: %v", srv.Key(), err)
		o.notifier.Error(fmt.Sprintf("Failed to save server: %v", err))
		return
	}
	o.notifier.Server(srv)
}

func (o *Orchestrator) handleEntityPaired(e engine.EntityPaired) {
	ent := &PairedEntity{
		EntityID:   e.EntityID,
		EntityType: e.EntityType,
		EntityName: e.EntityName,
		ServerID:   fmt.Sprintf("%s:%d", e.IP, e.Port),
		ServerName: e.ServerName,
		PairedAt:   o.Now().UnixMilli(),
	}
	if ent.EntityType == "" {
		ent.EntityType = "switch"
	}
	if ent.EntityName == "" {
		ent.EntityName = fmt.Sprintf("Device #%d", e.EntityID)
	}
	if ent.ServerName == "" {
		ent.ServerName = "Unknown Server"
	}
	if err := o.repo.UpsertEntity(context.Background(), ent); err != nil {
		logger.Errorf("pairing: persist entity %s: %v", ent.Key(), err)
		o.notifier.Error(fmt.Sprintf("Failed to save entity: %v", err))
		return
	}
	o.notifier.Entity(ent)
}
