package objecttree

// BuiltinFunction enumerates the functions implemented by the runtime itself
type BuiltinFunction int

const (
	BuiltinGetWindowScaleFactor BuiltinFunction = iota
	BuiltinGetWindowDefaultFontSize
	BuiltinAnimationTick
	BuiltinDebug
	BuiltinMod
	BuiltinRound
	BuiltinCeil
	BuiltinFloor
	BuiltinAbs
	BuiltinSqrt
	BuiltinCos
	BuiltinSin
	BuiltinTan
	BuiltinACos
	BuiltinASin
	BuiltinATan
	BuiltinLog
	BuiltinPow
	BuiltinSetFocusItem
	BuiltinShowPopupWindow
	BuiltinClosePopupWindow
	BuiltinItemMemberFunction
	BuiltinStringToFloat
	BuiltinStringIsFloat
	BuiltinColorBrighter
	BuiltinColorDarker
	BuiltinColorTransparentize
	BuiltinColorMix
	BuiltinColorWithAlpha
	BuiltinImageSize
	BuiltinArrayLength
	BuiltinRgb
	BuiltinImplicitLayoutInfo
	BuiltinItemAbsolutePosition
	BuiltinRegisterCustomFontByPath
	BuiltinRegisterCustomFontByMemory
	BuiltinRegisterBitmapFont
	BuiltinDarkColorScheme
	BuiltinSetTextInputFocused
	BuiltinTextInputFocused
	BuiltinTranslate
)

// IsPure reports whether calling the function has no observable side effect
// and no dependency on mutable runtime state. Only pure builtins can make a
// constant call expression.
func (f BuiltinFunction) IsPure() bool {
	switch f {
	case BuiltinMod, BuiltinRound, BuiltinCeil, BuiltinFloor, BuiltinAbs,
		BuiltinSqrt, BuiltinCos, BuiltinSin, BuiltinTan,
		BuiltinACos, BuiltinASin, BuiltinATan, BuiltinLog, BuiltinPow,
		BuiltinStringToFloat, BuiltinStringIsFloat,
		BuiltinColorBrighter, BuiltinColorDarker, BuiltinColorTransparentize,
		BuiltinColorMix, BuiltinColorWithAlpha, BuiltinRgb:
		return true
	default:
		return false
	}
}

// String returns the source-level name of the builtin
func (f BuiltinFunction) String() string {
	names := map[BuiltinFunction]string{
		BuiltinGetWindowScaleFactor:       "get-window-scale-factor",
		BuiltinGetWindowDefaultFontSize:   "get-window-default-font-size",
		BuiltinAnimationTick:              "animation-tick",
		BuiltinDebug:                      "debug",
		BuiltinMod:                        "mod",
		BuiltinRound:                      "round",
		BuiltinCeil:                       "ceil",
		BuiltinFloor:                      "floor",
		BuiltinAbs:                        "abs",
		BuiltinSqrt:                       "sqrt",
		BuiltinCos:                        "cos",
		BuiltinSin:                        "sin",
		BuiltinTan:                        "tan",
		BuiltinACos:                       "acos",
		BuiltinASin:                       "asin",
		BuiltinATan:                       "atan",
		BuiltinLog:                        "log",
		BuiltinPow:                        "pow",
		BuiltinSetFocusItem:               "set-focus-item",
		BuiltinShowPopupWindow:            "show-popup-window",
		BuiltinClosePopupWindow:           "close-popup-window",
		BuiltinItemMemberFunction:         "item-member-function",
		BuiltinStringToFloat:              "string-to-float",
		BuiltinStringIsFloat:              "string-is-float",
		BuiltinColorBrighter:              "brighter",
		BuiltinColorDarker:                "darker",
		BuiltinColorTransparentize:        "transparentize",
		BuiltinColorMix:                   "mix",
		BuiltinColorWithAlpha:             "with-alpha",
		BuiltinImageSize:                  "image-size",
		BuiltinArrayLength:                "array-length",
		BuiltinRgb:                        "rgb",
		BuiltinImplicitLayoutInfo:         "implicit-layout-info",
		BuiltinItemAbsolutePosition:       "item-absolute-position",
		BuiltinRegisterCustomFontByPath:   "register-custom-font-by-path",
		BuiltinRegisterCustomFontByMemory: "register-custom-font-by-memory",
		BuiltinRegisterBitmapFont:         "register-bitmap-font",
		BuiltinDarkColorScheme:            "dark-color-scheme",
		BuiltinSetTextInputFocused:        "set-text-input-focused",
		BuiltinTextInputFocused:           "text-input-focused",
		BuiltinTranslate:                  "translate",
	}
	if n, ok := names[f]; ok {
		return n
	}
	return "unknown-builtin"
}
