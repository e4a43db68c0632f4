package tui

import (
	"github.com/gdamore/tcell/v2"
)

// Palette is the set of colors applied to every widget.
type Palette struct {
	Accent     tcell.Color
	Background tcell.Color
	Field      tcell.Color
	Label      tcell.Color
	Text       tcell.Color
	Muted      tcell.Color
}

var (
	// Brand accent
	VaultTeal = tcell.NewRGBColor(20, 184, 166) // #14B8A6

	// Status colors
	SuccessGreen  = tcell.NewRGBColor(34, 197, 94)  // #22C55E
	ErrorRed      = tcell.NewRGBColor(239, 68, 68)  // #EF4444
	WarningYellow = tcell.NewRGBColor(234, 179, 8)  // #EAB308
	InfoBlue      = tcell.NewRGBColor(59, 130, 246) // #3B82F6

	LightGray = tcell.ColorLightGray
)

// DarkPalette and LightPalette match the "dark" and "light" theme settings.
var (
	DarkPalette = Palette{
		Accent:     VaultTeal,
		Background: tcell.ColorBlack,
		Field:      tcell.NewRGBColor(40, 40, 40),
		Label:      tcell.NewRGBColor(200, 200, 200),
		Text:       tcell.ColorWhite,
		Muted:      tcell.ColorGray,
	}
	LightPalette = Palette{
		Accent:     tcell.NewRGBColor(13, 148, 136),
		Background: tcell.ColorWhite,
		Field:      tcell.NewRGBColor(229, 231, 235),
		Label:      tcell.NewRGBColor(55, 65, 81),
		Text:       tcell.ColorBlack,
		Muted:      tcell.ColorDarkGray,
	}
)

// PaletteFor returns the palette for a theme name; unknown names get the dark one.
func PaletteFor(theme string) Palette {
	if theme == "light" {
		return LightPalette
	}
	return DarkPalette
}

// Symbols and icons
const (
	SymbolSuccess = "✓"
	SymbolError   = "✗"
	SymbolWarning = "⚠"
	SymbolInfo    = "ℹ"
	SymbolBullet  = "•"
)

// StatusColor returns the color for an alert severity or status word.
func StatusColor(status string) tcell.Color {
	switch status {
	case "success", "ok", "done":
		return SuccessGreen
	case "error", "modal", "failed":
		return ErrorRed
	case "warning":
		return WarningYellow
	case "info", "running":
		return InfoBlue
	default:
		return LightGray
	}
}

// StatusSymbol returns the symbol for an alert severity or status word.
func StatusSymbol(status string) string {
	switch status {
	case "success", "ok", "done":
		return SymbolSuccess
	case "error", "modal", "failed":
		return SymbolError
	case "warning":
		return SymbolWarning
	case "info", "running":
		return SymbolInfo
	default:
		return SymbolBullet
	}
}
