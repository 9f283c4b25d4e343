// Package keymap parses key-map configuration files and drives the
// Lua script host that backs the scripting entries within them.
// Grounded on inputconvertgame.h's KeyMap::KeyMapNode tagged-entry shape
// and config.Session's JSON-tag convention.
package keymap

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mirrorctl/scrcpy-go/internal/screrr"
)

// EntryType tags which of the four bindable behaviours a key maps to.
type EntryType string

const (
	TypeAndroidKey EntryType = "androidKey"
	TypeSteerWheel EntryType = "steerWheel"
	TypeCameraMove EntryType = "cameraMove"
	TypeScript     EntryType = "script"
)

// Entry is one bound key or mouse action. Only the fields relevant to
// Type are populated; unused fields are left zero, matching the source's
// single KeyMapNode struct reused across KMT_* tags.
type Entry struct {
	Type EntryType `json:"type"`

	// Input side: which physical key/button triggers this entry. Empty
	// means "mouse" for TypeCameraMove (the anchor click/drag binding).
	Key string `json:"key,omitempty"`

	// TypeAndroidKey
	AndroidKeyName string `json:"androidKeyName,omitempty"`

	// TypeSteerWheel / TypeCameraMove shared geometry.
	CenterX float64 `json:"centerX,omitempty"`
	CenterY float64 `json:"centerY,omitempty"`
	Up      float64 `json:"up,omitempty"`
	Down    float64 `json:"down,omitempty"`
	Left    float64 `json:"left,omitempty"`
	Right   float64 `json:"right,omitempty"`

	// TypeCameraMove: the window-point capture region's look-around
	// sensitivity, dividing each accumulated mouse delta before it's
	// normalised against the device target size. Zero means 1 (no
	// scaling) on that axis.
	Sensitivity float64 `json:"sensitivity,omitempty"`

	// TypeScript
	Script     string `json:"script,omitempty"`
	ScriptFile string `json:"scriptFile,omitempty"`
}

// KeyMap is the top-level parsed document: a named profile, the video
// size it was authored against, and the bound entries.
type KeyMap struct {
	Name      string  `json:"name"`
	VideoW    int     `json:"videoW"`
	VideoH    int     `json:"videoH"`
	Entries   []Entry `json:"entries"`
}

// Parse decodes raw JSON into a KeyMap, rejecting entries whose Type
// isn't one of the four known tags (screrr.InvalidParameter).
func Parse(raw []byte) (KeyMap, error) {
	var km KeyMap
	if err := json.Unmarshal(raw, &km); err != nil {
		return KeyMap{}, screrr.Wrap(screrr.InvalidParameter, err)
	}
	for i, e := range km.Entries {
		switch e.Type {
		case TypeAndroidKey, TypeSteerWheel, TypeCameraMove, TypeScript:
		default:
			return KeyMap{}, screrr.Wrap(screrr.InvalidParameter,
				fmt.Errorf("entry %d: unknown type %q", i, e.Type))
		}
	}
	return km, nil
}

// Load reads and parses a key-map file from disk, resolving any
// scriptFile references relative to the key-map's own directory.
func Load(path string) (KeyMap, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return KeyMap{}, screrr.Wrap(screrr.InvalidParameter, err)
	}
	km, err := Parse(raw)
	if err != nil {
		return KeyMap{}, err
	}
	if err := resolveScriptFiles(&km, filepath.Dir(path)); err != nil {
		return KeyMap{}, err
	}
	return km, nil
}

// resolveScriptFiles loads each TypeScript entry's ScriptFile (if set and
// Script is empty) into Script, so Bind/Host.Run only ever deal with
// inline source text.
func resolveScriptFiles(km *KeyMap, baseDir string) error {
	for i := range km.Entries {
		e := &km.Entries[i]
		if e.Type != TypeScript || e.Script != "" || e.ScriptFile == "" {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(baseDir, e.ScriptFile))
		if err != nil {
			return screrr.Wrap(screrr.InvalidParameter, err)
		}
		e.Script = string(raw)
	}
	return nil
}
