package event

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/erp/stockledger/internal/domain/shared"
)

// EventUpgrader rewrites a raw payload from SourceVersion to SourceVersion+1.
type EventUpgrader interface {
	SourceVersion() int
	Upgrade(payload map[string]any) (map[string]any, error)
}

// FieldUpgrader is an EventUpgrader backed by a transform function
type FieldUpgrader struct {
	source    int
	transform func(map[string]any) (map[string]any, error)
}

// NewFieldUpgrader creates an upgrader from version source to source+1
func NewFieldUpgrader(source int, transform func(map[string]any) (map[string]any, error)) *FieldUpgrader {
	return &FieldUpgrader{source: source, transform: transform}
}

// RenameFieldUpgrader moves a top-level field to a new name
func RenameFieldUpgrader(source int, oldName, newName string) *FieldUpgrader {
	return NewFieldUpgrader(source, func(data map[string]any) (map[string]any, error) {
		if v, ok := data[oldName]; ok {
			data[newName] = v
			delete(data, oldName)
		}
		return data, nil
	})
}

// SourceVersion returns the version this upgrader reads
func (u *FieldUpgrader) SourceVersion() int { return u.source }

// Upgrade applies the transform
func (u *FieldUpgrader) Upgrade(payload map[string]any) (map[string]any, error) {
	return u.transform(payload)
}

type registeredEvent struct {
	goType    reflect.Type
	current   int
	upgraders map[int]EventUpgrader
}

// EventSerializer handles JSON serialization of domain events and maps an event type
// name back to its Go type. Payloads written under an older schema_version are
// upgraded through the registered upgrader chain before they are decoded.
type EventSerializer struct {
	mu       sync.RWMutex
	registry map[string]*registeredEvent
}

// NewEventSerializer creates a new event serializer
func NewEventSerializer() *EventSerializer {
	return &EventSerializer{
		registry: make(map[string]*registeredEvent),
	}
}

// Register registers an event type at schema version 1
func (s *EventSerializer) Register(eventType string, eventInstance shared.DomainEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := reflect.TypeOf(eventInstance)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	s.registry[eventType] = &registeredEvent{
		goType:    t,
		current:   1,
		upgraders: make(map[int]EventUpgrader),
	}
}

// RegisterUpgraders attaches an upgrade chain to a registered type. The chain must be
// contiguous from version 1; the current version becomes the last target.
func (s *EventSerializer) RegisterUpgraders(eventType string, upgraders ...EventUpgrader) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, ok := s.registry[eventType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", eventType)
	}
	chain := make(map[int]EventUpgrader, len(upgraders))
	for _, u := range upgraders {
		chain[u.SourceVersion()] = u
	}
	for v := 1; v <= len(upgraders); v++ {
		if _, ok := chain[v]; !ok {
			return fmt.Errorf("missing upgrader for %s v%d -> v%d", eventType, v, v+1)
		}
	}
	reg.upgraders = chain
	reg.current = len(upgraders) + 1
	return nil
}

// CurrentVersion returns the schema version new payloads of the type are decoded at
func (s *EventSerializer) CurrentVersion(eventType string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reg, ok := s.registry[eventType]
	if !ok {
		return 0, false
	}
	return reg.current, true
}

// Serialize serializes a domain event to JSON bytes
func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	return json.Marshal(event)
}

// Deserialize decodes a payload of the given event type.
// The payload's own type field, when present, must agree with eventType.
func (s *EventSerializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	s.mu.RLock()
	reg, ok := s.registry[eventType]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	var header struct {
		Type          string `json:"type"`
		SchemaVersion int    `json:"schema_version"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if header.Type != "" && header.Type != eventType {
		return nil, fmt.Errorf("payload type %q does not match %q", header.Type, eventType)
	}
	version := max(header.SchemaVersion, 1)
	if version > reg.current {
		return nil, fmt.Errorf("unsupported schema version %d for %s (current %d)", version, eventType, reg.current)
	}

	if version < reg.current {
		upgraded, err := upgrade(reg, data, version)
		if err != nil {
			return nil, fmt.Errorf("failed to upgrade %s from v%d: %w", eventType, version, err)
		}
		data = upgraded
	}

	eventPtr := reflect.New(reg.goType).Interface()
	if err := json.Unmarshal(data, eventPtr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	event, ok := eventPtr.(shared.DomainEvent)
	if !ok {
		return nil, fmt.Errorf("deserialized object does not implement DomainEvent")
	}

	return event, nil
}

func upgrade(reg *registeredEvent, data []byte, from int) ([]byte, error) {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	for v := from; v < reg.current; v++ {
		var err error
		if payload, err = reg.upgraders[v].Upgrade(payload); err != nil {
			return nil, fmt.Errorf("v%d -> v%d: %w", v, v+1, err)
		}
	}
	payload["schema_version"] = reg.current
	return json.Marshal(payload)
}

// IsRegistered checks if an event type is registered
func (s *EventSerializer) IsRegistered(eventType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.registry[eventType]
	return ok
}

// RegisteredTypes returns all registered event types, sorted
func (s *EventSerializer) RegisteredTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	types := make([]string, 0, len(s.registry))
	for t := range s.registry {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}
