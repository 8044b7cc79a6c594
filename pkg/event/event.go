// pkg/event/event.go
package event

import (
	"sync"
)

// Type represents the type of event
type Type string

// Race event types
const (
	SessionStarted      Type = "session_started"
	SessionEnded        Type = "session_ended"
	CheckpointCollected Type = "checkpoint_collected"
	LapCompleted        Type = "lap_completed"
	TrackCollision      Type = "track_collision"
	VehicleCollision    Type = "vehicle_collision"
	BoostActivated      Type = "boost_activated"
	BoostDepleted       Type = "boost_depleted"
)

// Event is the base interface for all events
type Event interface {
	GetType() Type
	GetSource() interface{}
	GetTick() uint64
}

// BaseEvent provides common functionality for all events
type BaseEvent struct {
	EventType Type
	Source    interface{}
	Tick      uint64
}

// GetType returns the event type
func (e *BaseEvent) GetType() Type {
	return e.EventType
}

// GetSource returns the event source
func (e *BaseEvent) GetSource() interface{} {
	return e.Source
}

// GetTick returns the session tick the event happened on
func (e *BaseEvent) GetTick() uint64 {
	return e.Tick
}

// Handler is a function that handles events
type Handler func(Event)

// Subscription identifies a registered handler. Cancel removes it.
type Subscription struct {
	ID     uint64
	Cancel func()
}

type subscriber struct {
	id      uint64
	handler Handler
}

// Bus manages event subscriptions and dispatching. Handlers run
// synchronously on the publishing goroutine.
type Bus struct {
	handlers map[Type][]subscriber
	nextID   uint64
	mu       sync.RWMutex
}

// NewEventBus creates a new event bus
func NewEventBus() *Bus {
	return &Bus{
		handlers: make(map[Type][]subscriber),
		nextID:   1,
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType Type, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[eventType] = append(b.handlers[eventType], subscriber{id: id, handler: handler})

	return &Subscription{
		ID:     id,
		Cancel: func() { b.unsubscribe(eventType, id) },
	}
}

func (b *Bus) unsubscribe(eventType Type, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[eventType]
	for i, s := range subs {
		if s.id == id {
			b.handlers[eventType] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish sends an event to all subscribed handlers
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	subs := b.handlers[event.GetType()]
	b.mu.RUnlock()

	for _, s := range subs {
		s.handler(event)
	}
}

// Specific event implementations

// SessionEvent marks the start or end of a race session
type SessionEvent struct {
	BaseEvent
	Cars int
}

// NewSessionEvent creates a new session event
func NewSessionEvent(eventType Type, source interface{}, tick uint64, cars int) *SessionEvent {
	return &SessionEvent{
		BaseEvent: BaseEvent{EventType: eventType, Source: source, Tick: tick},
		Cars:      cars,
	}
}

// CheckpointEvent is published when a car collects the checkpoint it was due
type CheckpointEvent struct {
	BaseEvent
	Car        int
	Checkpoint int
	Lap        int
}

// NewCheckpointEvent creates a new checkpoint event
func NewCheckpointEvent(source interface{}, tick uint64, car, checkpoint, lap int) *CheckpointEvent {
	return &CheckpointEvent{
		BaseEvent:  BaseEvent{EventType: CheckpointCollected, Source: source, Tick: tick},
		Car:        car,
		Checkpoint: checkpoint,
		Lap:        lap,
	}
}

// LapEvent is published when a car closes a lap
type LapEvent struct {
	BaseEvent
	Car     int
	Lap     int
	LapTime float64 // seconds
}

// NewLapEvent creates a new lap event
func NewLapEvent(source interface{}, tick uint64, car, lap int, lapTime float64) *LapEvent {
	return &LapEvent{
		BaseEvent: BaseEvent{EventType: LapCompleted, Source: source, Tick: tick},
		Car:       car,
		Lap:       lap,
		LapTime:   lapTime,
	}
}

// CollisionEvent describes a car hitting the track or another car. Other is
// -1 for track collisions.
type CollisionEvent struct {
	BaseEvent
	Car   int
	Other int
	Speed float64
}

// NewTrackCollisionEvent creates a collision event against the track
func NewTrackCollisionEvent(source interface{}, tick uint64, car int, speed float64) *CollisionEvent {
	return &CollisionEvent{
		BaseEvent: BaseEvent{EventType: TrackCollision, Source: source, Tick: tick},
		Car:       car,
		Other:     -1,
		Speed:     speed,
	}
}

// NewVehicleCollisionEvent creates a collision event between two cars
func NewVehicleCollisionEvent(source interface{}, tick uint64, car, other int, speed float64) *CollisionEvent {
	return &CollisionEvent{
		BaseEvent: BaseEvent{EventType: VehicleCollision, Source: source, Tick: tick},
		Car:       car,
		Other:     other,
		Speed:     speed,
	}
}

// BoostEvent reports a boost engaging or running dry
type BoostEvent struct {
	BaseEvent
	Car    int
	Energy float64
}

// NewBoostEvent creates a new boost event
func NewBoostEvent(eventType Type, source interface{}, tick uint64, car int, energy float64) *BoostEvent {
	return &BoostEvent{
		BaseEvent: BaseEvent{EventType: eventType, Source: source, Tick: tick},
		Car:       car,
		Energy:    energy,
	}
}
