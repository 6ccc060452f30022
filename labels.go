package geode

import "fmt"

// SetDebugLabel attaches a diagnostic label to e. Labels have no behavioral
// effect and are dropped when e is destroyed.
func (w *World) SetDebugLabel(e Entity, label string) {
	if !w.Alive(e) {
		return
	}
	w.labels[e] = label
}

// DebugLabel returns the label of e, if any.
func (w *World) DebugLabel(e Entity) (string, bool) {
	l, ok := w.labels[e]
	return l, ok
}

// UnsetDebugLabel removes the label of e.
func (w *World) UnsetDebugLabel(e Entity) {
	delete(w.labels, e)
}

// Describe formats e together with its label.
func (w *World) Describe(e Entity) string {
	if l, ok := w.labels[e]; ok {
		return fmt.Sprintf("%s %q", e, l)
	}
	return e.String()
}
