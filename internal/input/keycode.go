package input

import "github.com/veandco/go-sdl2/sdl"

// Android keycode constants (android.view.KeyEvent), the subset
// convertKeyCode maps to. Values match the AOSP numeric assignments.
const (
	AndroidKeycodeUnknown         = 0
	AndroidKeycode0               = 7
	AndroidKeycode1               = 8
	AndroidKeycode2               = 9
	AndroidKeycode3               = 10
	AndroidKeycode4               = 11
	AndroidKeycode5               = 12
	AndroidKeycode6               = 13
	AndroidKeycode7               = 14
	AndroidKeycode8               = 15
	AndroidKeycode9               = 16
	AndroidKeycodeA               = 29
	AndroidKeycodeB               = 30
	AndroidKeycodeC               = 31
	AndroidKeycodeD               = 32
	AndroidKeycodeE               = 33
	AndroidKeycodeF               = 34
	AndroidKeycodeG               = 35
	AndroidKeycodeH               = 36
	AndroidKeycodeI               = 37
	AndroidKeycodeJ               = 38
	AndroidKeycodeK               = 39
	AndroidKeycodeL               = 40
	AndroidKeycodeM               = 41
	AndroidKeycodeN               = 42
	AndroidKeycodeO               = 43
	AndroidKeycodeP               = 44
	AndroidKeycodeQ               = 45
	AndroidKeycodeR               = 46
	AndroidKeycodeS               = 47
	AndroidKeycodeT               = 48
	AndroidKeycodeU               = 49
	AndroidKeycodeV               = 50
	AndroidKeycodeW               = 51
	AndroidKeycodeX               = 52
	AndroidKeycodeY               = 53
	AndroidKeycodeZ               = 54
	AndroidKeycodeComma           = 55
	AndroidKeycodePeriod          = 56
	AndroidKeycodeSpace           = 62
	AndroidKeycodeEnter           = 66
	AndroidKeycodeDel             = 67
	AndroidKeycodeGrave           = 68
	AndroidKeycodeMinus           = 69
	AndroidKeycodeEquals          = 70
	AndroidKeycodeLeftBracket     = 71
	AndroidKeycodeRightBracket    = 72
	AndroidKeycodeBackslash       = 73
	AndroidKeycodeSemicolon       = 74
	AndroidKeycodeApostrophe      = 75
	AndroidKeycodeSlash           = 76
	AndroidKeycodeAt              = 77
	AndroidKeycodePlus            = 81
	AndroidKeycodeTab             = 61
	AndroidKeycodeEscape          = 111
	AndroidKeycodeForwardDel      = 112
	AndroidKeycodeMoveHome        = 122
	AndroidKeycodeMoveEnd         = 123
	AndroidKeycodePageUp          = 92
	AndroidKeycodePageDown        = 93
	AndroidKeycodeDpadLeft        = 21
	AndroidKeycodeDpadRight       = 22
	AndroidKeycodeDpadUp          = 19
	AndroidKeycodeDpadDown        = 20
	AndroidKeycodeNumpadEnter     = 160
	AndroidKeycodeNumpadLeftParen = 162
	AndroidKeycodeNumpadRightParen = 163
	AndroidKeycodeStar            = 17
	AndroidKeycodePound           = 18
)

// Android metastate flags (android.view.KeyEvent.META_*).
const (
	MetaShiftOn = 1 << 0
	MetaAltOn   = 1 << 1
	MetaCtrlOn  = 1 << 12
	MetaMetaOn  = 1 << 16
)

// convertKeyCode translates an SDL keycode to an Android keycode,
// transliterated from convertKeyCode: navigation/editing keys first
// (always mapped), then printable keys (suppressed when Alt/Meta is
// held, since those combinations are OS shortcuts on the client side).
func convertKeyCode(key sdl.Keycode, mods sdl.Keymod) int {
	switch key {
	case sdl.K_RETURN:
		return AndroidKeycodeEnter
	case sdl.K_KP_ENTER:
		return AndroidKeycodeNumpadEnter
	case sdl.K_ESCAPE:
		return AndroidKeycodeEscape
	case sdl.K_BACKSPACE:
		return AndroidKeycodeDel
	case sdl.K_DELETE:
		return AndroidKeycodeForwardDel
	case sdl.K_TAB:
		return AndroidKeycodeTab
	case sdl.K_HOME:
		return AndroidKeycodeMoveHome
	case sdl.K_END:
		return AndroidKeycodeMoveEnd
	case sdl.K_PAGEUP:
		return AndroidKeycodePageUp
	case sdl.K_PAGEDOWN:
		return AndroidKeycodePageDown
	case sdl.K_LEFT:
		return AndroidKeycodeDpadLeft
	case sdl.K_RIGHT:
		return AndroidKeycodeDpadRight
	case sdl.K_UP:
		return AndroidKeycodeDpadUp
	case sdl.K_DOWN:
		return AndroidKeycodeDpadDown
	}

	if mods&(sdl.KMOD_ALT|sdl.KMOD_GUI) != 0 {
		return AndroidKeycodeUnknown
	}

	switch key {
	case sdl.K_a:
		return AndroidKeycodeA
	case sdl.K_b:
		return AndroidKeycodeB
	case sdl.K_c:
		return AndroidKeycodeC
	case sdl.K_d:
		return AndroidKeycodeD
	case sdl.K_e:
		return AndroidKeycodeE
	case sdl.K_f:
		return AndroidKeycodeF
	case sdl.K_g:
		return AndroidKeycodeG
	case sdl.K_h:
		return AndroidKeycodeH
	case sdl.K_i:
		return AndroidKeycodeI
	case sdl.K_j:
		return AndroidKeycodeJ
	case sdl.K_k:
		return AndroidKeycodeK
	case sdl.K_l:
		return AndroidKeycodeL
	case sdl.K_m:
		return AndroidKeycodeM
	case sdl.K_n:
		return AndroidKeycodeN
	case sdl.K_o:
		return AndroidKeycodeO
	case sdl.K_p:
		return AndroidKeycodeP
	case sdl.K_q:
		return AndroidKeycodeQ
	case sdl.K_r:
		return AndroidKeycodeR
	case sdl.K_s:
		return AndroidKeycodeS
	case sdl.K_t:
		return AndroidKeycodeT
	case sdl.K_u:
		return AndroidKeycodeU
	case sdl.K_v:
		return AndroidKeycodeV
	case sdl.K_w:
		return AndroidKeycodeW
	case sdl.K_x:
		return AndroidKeycodeX
	case sdl.K_y:
		return AndroidKeycodeY
	case sdl.K_z:
		return AndroidKeycodeZ
	case sdl.K_0:
		return AndroidKeycode0
	case sdl.K_1:
		return AndroidKeycode1
	case sdl.K_2:
		return AndroidKeycode2
	case sdl.K_3:
		return AndroidKeycode3
	case sdl.K_4:
		return AndroidKeycode4
	case sdl.K_5:
		return AndroidKeycode5
	case sdl.K_6:
		return AndroidKeycode6
	case sdl.K_7:
		return AndroidKeycode7
	case sdl.K_8:
		return AndroidKeycode8
	case sdl.K_9:
		return AndroidKeycode9
	case sdl.K_SPACE:
		return AndroidKeycodeSpace
	case sdl.K_COMMA:
		return AndroidKeycodeComma
	case sdl.K_PERIOD:
		return AndroidKeycodePeriod
	case sdl.K_MINUS:
		return AndroidKeycodeMinus
	case sdl.K_EQUALS:
		return AndroidKeycodeEquals
	case sdl.K_LEFTBRACKET:
		return AndroidKeycodeLeftBracket
	case sdl.K_RIGHTBRACKET:
		return AndroidKeycodeRightBracket
	case sdl.K_BACKSLASH:
		return AndroidKeycodeBackslash
	case sdl.K_SEMICOLON:
		return AndroidKeycodeSemicolon
	case sdl.K_QUOTE:
		return AndroidKeycodeApostrophe
	case sdl.K_SLASH:
		return AndroidKeycodeSlash
	case sdl.K_AT:
		return AndroidKeycodeAt
	case sdl.K_PLUS:
		return AndroidKeycodePlus
	case sdl.K_BACKQUOTE:
		return AndroidKeycodeGrave
	case sdl.K_HASH:
		return AndroidKeycodePound
	case sdl.K_LEFTPAREN:
		return AndroidKeycodeNumpadLeftParen
	case sdl.K_RIGHTPAREN:
		return AndroidKeycodeNumpadRightParen
	case sdl.K_ASTERISK:
		return AndroidKeycodeStar
	}
	return AndroidKeycodeUnknown
}

// convertMetastate translates SDL modifier flags to Android metastate
// bits, per convertMetastate.
func convertMetastate(mods sdl.Keymod) int {
	m := 0
	if mods&sdl.KMOD_SHIFT != 0 {
		m |= MetaShiftOn
	}
	if mods&sdl.KMOD_CTRL != 0 {
		m |= MetaCtrlOn
	}
	if mods&sdl.KMOD_ALT != 0 {
		m |= MetaAltOn
	}
	if mods&sdl.KMOD_GUI != 0 {
		m |= MetaMetaOn
	}
	return m
}
