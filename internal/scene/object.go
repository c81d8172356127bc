// Package scene holds the mutable tinyland scene: an id -> Object map,
// plus the ordered alias -> Object Context the matcher and executor pass
// around. Scene is a dumb CRUD store; nothing here knows about rules or
// triggers (that ownership lives one layer up, in internal/reactive).
package scene

import (
	"sort"
	"strings"

	"github.com/tinylanders/tinytalk/internal/ast"
)

// Object is one scene record: an opaque id, the tag set it was created
// with, a bag of named attributes, and optional advisory relation
// back-refs recorded by a "friend" create.
type Object struct {
	ID         string
	Tags       map[string]struct{}
	Attrs      map[string]ast.Value
	RelatedIDs []string
}

// NewObject builds an Object whose attrs["id"] and attrs["type"] are
// kept in sync with ID and Tags, per the Object invariant.
func NewObject(id string, tags []string, attrs map[string]ast.Value) *Object {
	o := &Object{
		ID:    id,
		Tags:  make(map[string]struct{}, len(tags)),
		Attrs: make(map[string]ast.Value, len(attrs)+2),
	}
	for _, t := range tags {
		o.Tags[t] = struct{}{}
	}
	for k, v := range attrs {
		o.Attrs[k] = v
	}
	o.syncIdentity()
	return o
}

// sortedTags returns the object's tags in a deterministic order, used
// both for the "type" attribute and for tag-set comparison.
func (o *Object) sortedTags() []string {
	tags := make([]string, 0, len(o.Tags))
	for t := range o.Tags {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

func (o *Object) syncIdentity() {
	o.Attrs["id"] = ast.Str(o.ID)
	o.Attrs["type"] = ast.Str(strings.Join(o.sortedTags(), " "))
}

// TagSet returns the object's tags as a set, for exact tag-match
// comparison against a clause's tag set.
func (o *Object) TagSet() map[string]struct{} {
	return o.Tags
}

// ApplyPatch merges patch into the object's attrs (last-write-wins on a
// per-attribute basis) and re-syncs the id/type invariant.
func (o *Object) ApplyPatch(patch map[string]ast.Value) {
	for k, v := range patch {
		o.Attrs[k] = v
	}
	o.syncIdentity()
}

// Clone returns a deep-enough copy for safe use outside the scene's
// mutation path (e.g. serialization).
func (o *Object) Clone() *Object {
	c := &Object{
		ID:         o.ID,
		Tags:       make(map[string]struct{}, len(o.Tags)),
		Attrs:      make(map[string]ast.Value, len(o.Attrs)),
		RelatedIDs: append([]string(nil), o.RelatedIDs...),
	}
	for t := range o.Tags {
		c.Tags[t] = struct{}{}
	}
	for k, v := range o.Attrs {
		c.Attrs[k] = v
	}
	return c
}
