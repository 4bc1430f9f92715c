package ui

import "github.com/charmbracelet/lipgloss"

var (
	Cyan    = lipgloss.Color("#00E5FF")
	Magenta = lipgloss.Color("#FF1B6B")
	Yellow  = lipgloss.Color("#FFB500")
	Green   = lipgloss.Color("#2AFFAA")
	Red     = lipgloss.Color("#FF5555")

	Base01 = lipgloss.Color("#6C7280") // Muted text
	Base1  = lipgloss.Color("#B4BCC8") // Secondary text
	Base2  = lipgloss.Color("#ECEFF4") // Primary text

	BuyColor  = Green
	SellColor = Red
)

// Palette provides a centralized color management
type Palette struct {
	Primary       lipgloss.Color
	Secondary     lipgloss.Color
	Warning       lipgloss.Color
	Text          lipgloss.Color
	TextMuted     lipgloss.Color
	TextSecondary lipgloss.Color

	Buy  lipgloss.Color
	Sell lipgloss.Color
}

// DefaultPalette returns the default color palette
func DefaultPalette() Palette {
	return Palette{
		Primary:       Cyan,
		Secondary:     Magenta,
		Warning:       Yellow,
		Text:          Base2,
		TextMuted:     Base01,
		TextSecondary: Base1,
		Buy:           BuyColor,
		Sell:          SellColor,
	}
}
