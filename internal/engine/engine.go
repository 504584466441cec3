// Package engine defines the boundary to the external pairing engine: the
// opaque component that speaks the actual device/server pairing protocol.
// The agent only consumes its lifecycle events and drives register/listen.
package engine

import "context"

// Event is a tagged variant emitted by a running engine.
type Event interface{ pairingEvent() }

// Status is free-form progress text intended for the user.
type Status struct {
	Message string
}

// ServerPaired reports a completed server pairing.
type ServerPaired struct {
	Name        string
	IP          string
	Port        int
	PlayerID    string
	PlayerToken string
}

// EntityPaired reports a completed smart-device pairing. EntityType and
// EntityName may be empty; IP/Port/ServerName identify the owning server.
type EntityPaired struct {
	EntityID   int64
	EntityType string
	EntityName string
	IP         string
	Port       int
	ServerName string
}

// Failure is a non-fatal error reported by the engine. The engine keeps
// running after emitting one.
type Failure struct {
	Message string
}

func (Status) pairingEvent()       {}
func (ServerPaired) pairingEvent() {}
func (EntityPaired) pairingEvent() {}
func (Failure) pairingEvent()      {}

// Engine is one live pairing-engine instance. Events is open from
// construction and closed by Destroy (or by the engine dying), so a consumer
// draining the channel sees every event between construction and teardown.
type Engine interface {
	Events() <-chan Event
	// Register hands the engine the captured registration token.
	Register(ctx context.Context, token string) error
	// Listen tells a registered engine to start listening for pairings.
	Listen(ctx context.Context) error
	// Destroy releases the engine's resources. Idempotent.
	Destroy() error
}

// Factory constructs a fresh engine instance.
type Factory func(ctx context.Context) (Engine, error)
