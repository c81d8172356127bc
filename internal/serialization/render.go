// Package serialization renders a scene into the envelope a tinyland
// render client expects, grounded on
// original_source/tinytalk/websocket_server.py's format_scene(): objects
// tagged "marker" are grouped under appMarkers, everything else under
// virtualObjects.
package serialization

import (
	"encoding/json"
	"io"
	"sort"

	"github.com/tinylanders/tinytalk/internal/ast"
	"github.com/tinylanders/tinytalk/internal/scene"
)

// renderedValue is the JSON form of an ast.Value: tagged by kind so a
// client can distinguish a Number "0" from a Str "0".
type renderedValue struct {
	Kind  string `json:"kind"`
	Value any    `json:"value,omitempty"`
}

func marshalValue(v ast.Value) renderedValue {
	switch v.Kind {
	case ast.NumberVal:
		return renderedValue{Kind: "number", Value: v.Num}
	case ast.StrVal:
		return renderedValue{Kind: "string", Value: v.Str}
	case ast.BoolVal:
		return renderedValue{Kind: "bool", Value: v.Bool}
	case ast.WildcardVal:
		return renderedValue{Kind: "wildcard"}
	default:
		return renderedValue{Kind: "undefined"}
	}
}

// renderedObject is one scene object's wire form.
type renderedObject struct {
	ID         string                   `json:"id"`
	Tags       []string                 `json:"tags"`
	Attrs      map[string]renderedValue `json:"attrs"`
	RelatedIDs []string                 `json:"relatedIds,omitempty"`
}

func toRenderedObject(o *scene.Object) renderedObject {
	attrs := make(map[string]renderedValue, len(o.Attrs))
	for k, v := range o.Attrs {
		attrs[k] = marshalValue(v)
	}

	tagSet := o.TagSet()
	tags := make([]string, 0, len(tagSet))
	for t := range tagSet {
		tags = append(tags, t)
	}
	sort.Strings(tags)

	return renderedObject{
		ID:         o.ID,
		Tags:       tags,
		Attrs:      attrs,
		RelatedIDs: o.RelatedIDs,
	}
}

// Envelope is the render-facing grouping of a scene: objects tagged
// "marker" are physical AR markers the client tracks directly, every
// other object is a virtual object the client draws relative to them.
type Envelope struct {
	AppMarkers     map[string]renderedObject `json:"appMarkers"`
	VirtualObjects map[string]renderedObject `json:"virtualObjects"`
}

// Render groups every object in objects into an Envelope.
func Render(objects []*scene.Object) Envelope {
	env := Envelope{
		AppMarkers:     make(map[string]renderedObject),
		VirtualObjects: make(map[string]renderedObject),
	}
	for _, o := range objects {
		r := toRenderedObject(o)
		if _, ok := o.Tags["marker"]; ok {
			env.AppMarkers[o.ID] = r
		} else {
			env.VirtualObjects[o.ID] = r
		}
	}
	return env
}

// WriteJSON renders objects and writes the envelope as JSON to w.
func WriteJSON(objects []*scene.Object, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Render(objects))
}
