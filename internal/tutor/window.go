package tutor

// WindowSize is the number of recent grades considered for difficulty review.
const WindowSize = 3

// Window is a fixed-size FIFO of the most recent grades.
type Window struct {
	items []Quality
}

// Push appends q, evicting the oldest grade when the window is full.
func (w *Window) Push(q Quality) {
	w.items = append(w.items, q)
	if len(w.items) > WindowSize {
		w.items = w.items[len(w.items)-WindowSize:]
	}
}

// Full reports whether the window holds WindowSize grades.
func (w *Window) Full() bool { return len(w.items) == WindowSize }

func (w *Window) Len() int { return len(w.items) }

// Clear empties the window.
func (w *Window) Clear() { w.items = nil }

// Items returns a copy of the window, oldest first.
func (w *Window) Items() []Quality {
	out := make([]Quality, len(w.items))
	copy(out, w.items)
	return out
}
