package geode

import "reflect"

// MaxEventTypes defines the maximum number of unique event types that can be
// registered in the EventBus. This value is fixed at 256.
const MaxEventTypes = 256

// EntitySpawned is published when an entity becomes alive in a world.
type EntitySpawned struct {
	Entity Entity
}

// EntityDestroyed is published after an entity and all its components are gone.
type EntityDestroyed struct {
	Label  string
	Entity Entity
}

// ComponentAdded is published when Insert attaches or replaces a component.
type ComponentAdded struct {
	Type     reflect.Type
	Entity   Entity
	ID       ComponentID
	Replaced bool // an existing value was replaced and destroyed
}

// ComponentRemoved is published when a component leaves an entity, either
// through Remove or because the entity was destroyed.
type ComponentRemoved struct {
	Type      reflect.Type
	Entity    Entity
	ID        ComponentID
	Destroyed bool // dropped by entity destruction rather than Remove
}

// EventBus provides a simple, type-safe event bus for decoupled communication
// between the world and its collaborators. Systems subscribe to specific event
// types and the world publishes to all interested listeners without direct
// dependencies.
//
// Handlers run synchronously on the publishing goroutine.
type EventBus struct {
	eventTypeMap    map[reflect.Type]uint8
	handlers        [MaxEventTypes][]interface{}
	nextEventTypeID uint16
}

// Subscribe registers a handler function to be called when an event of type `T`
// is published. Handlers are stored in the order they are subscribed.
func Subscribe[T any](bus *EventBus, handler func(T)) {
	t := reflect.TypeFor[T]()
	id := bus.getEventTypeID(t)
	if cap(bus.handlers[id]) == 0 {
		bus.handlers[id] = make([]interface{}, 0, 4) // Preallocate small capacity to reduce reallocs
	}
	bus.handlers[id] = append(bus.handlers[id], handler)
}

// Publish broadcasts an event of type `T` to all registered handlers for that
// type. The handlers are called synchronously in the order they were subscribed.
func Publish[T any](bus *EventBus, event T) {
	if bus.eventTypeMap == nil {
		return
	}
	t := reflect.TypeFor[T]()
	if id, ok := bus.eventTypeMap[t]; ok {
		hs := bus.handlers[id]
		for _, h := range hs {
			h.(func(T))(event)
		}
	}
}

// getEventTypeID retrieves or assigns an ID for the event type.
func (bus *EventBus) getEventTypeID(t reflect.Type) uint8 {
	if bus.eventTypeMap == nil {
		bus.eventTypeMap = make(map[reflect.Type]uint8)
	}
	if id, ok := bus.eventTypeMap[t]; ok {
		return id
	}
	if bus.nextEventTypeID >= MaxEventTypes {
		panic("geode: too many event types")
	}
	id := uint8(bus.nextEventTypeID)
	bus.nextEventTypeID++
	bus.eventTypeMap[t] = id
	return id
}
