package keymap

import "strings"

// androidKeyByName maps the small set of symbolic key names scriptapi.cpp's
// getAndroidKeyCode accepts ("W", "SPACE", "ENTER", "BACK", "HOME", ...)
// to Android keycodes. Other single letters and digits map to their
// Android keycodes (A..Z = 29..54, 0..9 = 7..16), the same values
// input.convertKeyCode's own table assigns them.
func androidKeyByName(name string) (int, bool) {
	switch strings.ToUpper(name) {
	case "W":
		return 51, true // AKEYCODE_W
	case "A":
		return 29, true // AKEYCODE_A
	case "S":
		return 47, true // AKEYCODE_S
	case "D":
		return 32, true // AKEYCODE_D
	case "SPACE":
		return 62, true
	case "ENTER":
		return 66, true
	case "BACK":
		return 4, true
	case "HOME":
		return 3, true
	case "MENU":
		return 82, true
	case "VOLUP":
		return 24, true
	case "VOLDOWN":
		return 25, true
	}
	if len(name) == 1 {
		c := strings.ToUpper(name)[0]
		switch {
		case c >= 'A' && c <= 'Z':
			return int(c-'A') + 29, true
		case c >= '0' && c <= '9':
			return int(c-'0') + 7, true
		}
	}
	return 0, false
}
