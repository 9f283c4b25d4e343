package keymap

import (
	"github.com/mirrorctl/scrcpy-go/internal/input"
)

// Binding is an Entry resolved against a running Converter/Host pair: the
// object KeyDown/KeyUp dispatch against for one logical key id.
type Binding struct {
	entry Entry
	conv  *input.Converter
	host  *Host
	keyID int
}

// Bind prepares km's entries for dispatch against conv/host, assigning
// each entry a stable keyID (its index) for holdpress/script tracking.
func Bind(km KeyMap, conv *input.Converter, host *Host) []Binding {
	out := make([]Binding, len(km.Entries))
	for i, e := range km.Entries {
		out[i] = Binding{entry: e, conv: conv, host: host, keyID: i}
		if e.Type == TypeSteerWheel {
			conv.SetSteerWheel(input.Point{X: e.CenterX, Y: e.CenterY}, e.Up, e.Down, e.Left, e.Right)
		}
		if e.Type == TypeCameraMove {
			conv.SetViewport(input.Point{X: e.CenterX, Y: e.CenterY}, e.Sensitivity, e.Sensitivity)
		}
	}
	return out
}

// KeyDown/KeyUp run the bound entry's press/release behaviour: a script
// entry runs its Lua body with isPress set accordingly (ScriptApi's
// m_isPress), anything else is a no-op here. Steer-wheel and camera-move
// entries configure the Converter in Bind and are then driven by its own
// OnKey/OnMouseMove/OnMouseButton dispatch. Android-key entries are not
// acted on: no code reads an entry's AndroidKeyName, and the Converter's
// OnKey sends the pressed key's own Android keycode.
func (b Binding) KeyDown() { b.run(true) }
func (b Binding) KeyUp()   { b.run(false) }

func (b Binding) run(press bool) {
	if b.entry.Type != TypeScript || b.host == nil {
		return
	}
	src := b.entry.Script
	if src == "" {
		return
	}
	_ = b.host.Run(src, b.keyID, press)
}
