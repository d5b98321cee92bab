package agent

import "strings"

// Icon is a closed set of avatar identifiers. Anything else renders as IconBot.
type Icon string

const (
	IconBrain     Icon = "brain"
	IconCode      Icon = "code"
	IconFileText  Icon = "file-text"
	IconSearch    Icon = "search"
	IconMegaphone Icon = "megaphone"
	IconBarChart  Icon = "bar-chart"
	IconPalette   Icon = "palette"
	IconShield    Icon = "shield"
	IconBot       Icon = "bot"
	IconZap       Icon = "zap"
	IconTarget    Icon = "target"
	IconLightbulb Icon = "lightbulb"
)

var Icons = []Icon{
	IconBrain, IconCode, IconFileText, IconSearch, IconMegaphone, IconBarChart,
	IconPalette, IconShield, IconBot, IconZap, IconTarget, IconLightbulb,
}

// ParseIcon accepts either the kebab-case id or the display name
// ("BarChart", "FileText") and falls back to IconBot.
func ParseIcon(s string) Icon {
	norm := strings.ToLower(strings.NewReplacer("-", "", "_", "", " ", "").Replace(s))
	for _, icon := range Icons {
		if strings.ReplaceAll(string(icon), "-", "") == norm {
			return icon
		}
	}
	return IconBot
}
