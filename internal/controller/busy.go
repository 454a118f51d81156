package controller

import "sync/atomic"

const (
	submitBusyLabel  = "Loading..."
	geocodeBusyLabel = "Searching..."
)

// busyControl guards a Control so that checking it is free and taking it are
// one step. Only the holder of a claim may change or restore the control.
type busyControl struct {
	Control
	held atomic.Bool
}

func newBusyControl(c Control) *busyControl {
	return &busyControl{Control: c}
}

// claim takes the control. It fails while another claim is held or while the
// control was disabled by someone else.
func (b *busyControl) claim() (*busyClaim, bool) {
	if !b.held.CompareAndSwap(false, true) {
		return nil, false
	}
	if !b.Enabled() {
		b.held.Store(false)
		return nil, false
	}
	return &busyClaim{control: b}, true
}

type busyClaim struct {
	control   *busyControl
	shown     bool
	prevLabel string
}

// show disables the control and swaps in label for the rest of the claim.
func (c *busyClaim) show(label string) {
	if c.shown {
		return
	}
	c.shown = true
	c.prevLabel = c.control.Label()
	c.control.SetLabel(label)
	c.control.SetEnabled(false)
}

// release restores the control and frees it.
func (c *busyClaim) release() {
	if c.shown {
		c.control.SetLabel(c.prevLabel)
		c.control.SetEnabled(true)
	}
	c.control.held.Store(false)
}
