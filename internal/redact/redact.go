// Package redact clears response fields the caller's role does not permit.
//
// Every API payload type declares its own policy in code by implementing
// Redactable: clear the fields the view may not see, then pass nested
// redactables back through the visitor. No reflection, no attributes - the
// field -> required-capability table is the method body itself.
package redact

import "context"

// View is the caller's resolved capability set. The zero value is anonymous.
type View struct {
	Admin  bool
	Member bool
}

// Redactable is implemented by every payload type that carries protected
// fields or contains values that do.
type Redactable interface {
	Redact(v View, seen Seen)
}

// Seen tracks visited values by pointer identity so self-referential payload
// graphs terminate. Structural equality would be wrong here: two equal DTOs
// are still two nodes.
type Seen map[any]struct{}

// Visit marks p and reports whether it was unseen. Callers return early on
// false.
func (s Seen) Visit(p any) bool {
	if _, ok := s[p]; ok {
		return false
	}
	s[p] = struct{}{}
	return true
}

// Apply redacts a single payload in place.
func Apply(v View, r Redactable) {
	if r == nil {
		return
	}
	r.Redact(v, Seen{})
}

// ApplySlice redacts every element of a payload list with a shared visited
// set, so aliased elements are processed once.
func ApplySlice[T Redactable](v View, rs []T) {
	seen := Seen{}
	for _, r := range rs {
		r.Redact(v, seen)
	}
}

type viewKey struct{}

// WithView attaches the caller's view to a request context.
func WithView(ctx context.Context, v View) context.Context {
	return context.WithValue(ctx, viewKey{}, v)
}

// FromContext returns the caller's view; anonymous when absent.
func FromContext(ctx context.Context) View {
	if v, ok := ctx.Value(viewKey{}).(View); ok {
		return v
	}
	return View{}
}
