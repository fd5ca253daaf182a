// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package cc

const (
	initialWindow = 14
	minWindow     = 2
	shrinkFactor  = 0.55
)

// Window tracks how many packets the sender may keep in flight. It grows by
// one while the pipe is saturated and contracts multiplicatively once slack
// appears, never dropping below the floor of two. The rule makes no claim of
// TCP-friendliness.
type Window struct {
	size int
}

// NewWindow returns a window at its initial capacity.
func NewWindow() *Window {
	return &Window{size: initialWindow}
}

// Size returns the current window capacity.
func (w *Window) Size() int {
	return w.size
}

// Update adjusts the window for the current number of in-flight packets and
// returns the new capacity. It must be called whenever a packet is
// acknowledged or times out.
func (w *Window) Update(inFlight int) int {
	if inFlight >= w.size {
		w.size++
	} else if w.size > minWindow {
		w.size = max(int(float64(w.size)*shrinkFactor), minWindow)
	}

	return w.size
}
