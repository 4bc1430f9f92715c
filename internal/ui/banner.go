// internal/ui/banner.go
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/evm-sniper/internal/task"
)

// Summary is what the startup banner shows about the running instance.
type Summary struct {
	Wallet       string
	ChainID      string
	Router       string
	RPC          string
	PollInterval string
	Executed     int
	Targets      []task.Target
}

// BannerStyles groups the styles used by RenderBanner.
type BannerStyles struct {
	Container lipgloss.Style
	Title     lipgloss.Style
	Label     lipgloss.Style
	Value     lipgloss.Style
	Muted     lipgloss.Style
	Buy       lipgloss.Style
	Sell      lipgloss.Style
	Warning   lipgloss.Style
}

func NewBannerStyles(palette Palette) BannerStyles {
	return BannerStyles{
		Container: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.Primary).
			Padding(0, 2),
		Title: lipgloss.NewStyle().
			Foreground(palette.Primary).
			Bold(true),
		Label: lipgloss.NewStyle().
			Foreground(palette.TextSecondary).
			Width(10),
		Value: lipgloss.NewStyle().
			Foreground(palette.Text),
		Muted: lipgloss.NewStyle().
			Foreground(palette.TextMuted),
		Buy: lipgloss.NewStyle().
			Foreground(palette.Buy).
			Bold(true),
		Sell: lipgloss.NewStyle().
			Foreground(palette.Sell).
			Bold(true),
		Warning: lipgloss.NewStyle().
			Foreground(palette.Warning),
	}
}

// RenderBanner renders the startup summary with the default palette.
func RenderBanner(s Summary) string {
	return NewBannerStyles(DefaultPalette()).Render(s)
}

func (st BannerStyles) Render(s Summary) string {
	var b strings.Builder

	b.WriteString(st.Title.Render("EVM Sniper"))
	b.WriteString("\n\n")

	row := func(label, value string) {
		b.WriteString(st.Label.Render(label))
		b.WriteString(st.Value.Render(value))
		b.WriteString("\n")
	}
	row("Wallet", s.Wallet)
	row("Chain", s.ChainID)
	row("Router", s.Router)
	row("RPC", s.RPC)
	row("Interval", s.PollInterval)
	row("Executed", fmt.Sprintf("%d", s.Executed))

	b.WriteString("\n")
	if len(s.Targets) == 0 {
		b.WriteString(st.Warning.Render("no targets loaded"))
	}
	for i, t := range s.Targets {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(st.targetLine(t))
	}

	return st.Container.Render(b.String())
}

func (st BannerStyles) targetLine(t task.Target) string {
	dir := st.Buy.Render(string(t.Direction))
	if t.Direction == task.DirectionSell {
		dir = st.Sell.Render(string(t.Direction))
	}
	trigger := "<="
	if t.Direction == task.DirectionSell {
		trigger = ">="
	}
	return fmt.Sprintf("%s %s %s %s %s",
		dir,
		st.Value.Render(t.Label()),
		st.Muted.Render(fmt.Sprintf("%s %g", trigger, t.TriggerPrice)),
		st.Muted.Render(fmt.Sprintf("in %g @ %g%%", t.AmountIn, t.SlippageOrDefault())),
		st.Muted.Render(shortAddress(t.Key())),
	)
}

func shortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}
