package scene

import (
	"maps"
	"slices"

	"github.com/tinylanders/tinytalk/internal/ast"
)

// Scene is the id -> Object store. It is a dumb CRUD layer: callers that
// need trigger-aware mutation (the reactive loop) wrap it rather than
// subclass it, per the single-owner design this repo carries.
type Scene struct {
	objects map[string]*Object
}

func New() *Scene {
	return &Scene{objects: make(map[string]*Object)}
}

// Create inserts a new object. A create on an occupied id is treated as
// an update (the source's two disagreeing implementations resolved
// conservatively, per the open question in the design notes).
func (s *Scene) Create(id string, tags []string, attrs map[string]ast.Value) *Object {
	if existing, ok := s.objects[id]; ok {
		existing.ApplyPatch(attrs)
		return existing
	}
	o := NewObject(id, tags, attrs)
	s.objects[id] = o
	return o
}

// Update merges patch into the object's attrs. Returns ObjectDoesNotExist
// if id is absent.
func (s *Scene) Update(id string, patch map[string]ast.Value) (*Object, error) {
	o, ok := s.objects[id]
	if !ok {
		return nil, ObjectDoesNotExist(id)
	}
	o.ApplyPatch(patch)
	return o, nil
}

// Get returns the object for id, or (nil, false) if absent.
func (s *Scene) Get(id string) (*Object, bool) {
	o, ok := s.objects[id]
	return o, ok
}

// Iter returns every object in the scene in a deterministic order (by
// id), matching the matcher's requirement of a stable iteration order.
func (s *Scene) Iter() []*Object {
	ids := slices.Sorted(maps.Keys(s.objects))
	out := make([]*Object, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.objects[id])
	}
	return out
}

// Len returns the number of objects currently in the scene.
func (s *Scene) Len() int {
	return len(s.objects)
}
