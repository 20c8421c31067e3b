// Package xtypes implements the minimal TypeObject registry boundary: a
// type-name to TypeId mapping and the reverse lookup. No other package in
// this module calls the registry; SEDP does not consult it. It does not implement the ROS 2 introspection
// builder or the full DDS-XTypes type system — only the hash-addressed
// registry a participant needs to confirm two endpoints share a type.
package xtypes

import (
	"crypto/sha256"
	"sync"
)

// TypeId is a 128-bit hash of a TypeObject's minimal encoding, truncated
// from a SHA-256 digest.
type TypeId [16]byte

// TypeObject is the opaque, pre-serialized type description carried in
// PID_TYPE_OBJECT. This core treats it as opaque bytes; interpreting the
// DDS-XTypes TypeObject wire format is outside this boundary.
type TypeObject struct {
	Name    string
	Minimal []byte
	Complete []byte
}

// Registry maps type names and TypeIds to TypeObjects, shared by every
// local endpoint on a participant.
type Registry struct {
	mu      sync.RWMutex
	byName  map[string]TypeObject
	byID    map[TypeId]TypeObject
}

// NewRegistry creates an empty type registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]TypeObject),
		byID:   make(map[TypeId]TypeObject),
	}
}

// Register computes the TypeId from obj's minimal encoding and stores the
// mapping in both directions. Re-registering the same name with a
// different encoding replaces the previous entry.
func (r *Registry) Register(name string, obj TypeObject) TypeId {
	obj.Name = name
	id := HashMinimal(obj.Minimal)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[name] = obj
	r.byID[id] = obj
	return id
}

// Lookup retrieves a TypeObject by TypeId, as carried in a remote
// endpoint's PID_TYPE_OBJECT.
func (r *Registry) Lookup(id TypeId) (TypeObject, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	obj, ok := r.byID[id]
	return obj, ok
}

// LookupByName retrieves a TypeObject by the type name used in CreateWriter
// / CreateReader calls.
func (r *Registry) LookupByName(name string) (TypeObject, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	obj, ok := r.byName[name]
	return obj, ok
}

// HashMinimal derives a TypeId from a TypeObject's minimal encoding.
func HashMinimal(minimal []byte) TypeId {
	sum := sha256.Sum256(minimal)
	var id TypeId
	copy(id[:], sum[:16])
	return id
}
