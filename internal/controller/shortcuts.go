package controller

import (
	"context"
	"strings"
)

// Key is a key press with its modifier state.
type Key struct {
	Alt  bool
	Ctrl bool
	Name string
}

// ParseKey reads "alt+t" style chords. Modifier names are case-insensitive.
func ParseKey(s string) Key {
	var k Key
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	for i, p := range parts {
		if i == len(parts)-1 {
			k.Name = p
			break
		}
		switch p {
		case "alt", "option":
			k.Alt = true
		case "ctrl", "control":
			k.Ctrl = true
		}
	}
	return k
}

// KeyDown dispatches global shortcuts. handled is false for keys with no
// binding; err carries the outcome of the bound action.
func (c *Controller) KeyDown(ctx context.Context, k Key) (handled bool, err error) {
	if !k.Alt {
		return false, nil
	}
	switch k.Name {
	case "t":
		return true, c.ToggleTheme(ctx)
	case "s":
		if _, ok := c.Reconciler.Selection(); !ok {
			return false, nil
		}
		return true, c.SubmitClicked(ctx)
	}
	return false, nil
}
