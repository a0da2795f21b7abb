package styles

import "github.com/charmbracelet/lipgloss"

// Theme is one color scheme. The UI picks dark or light at startup.
type Theme struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color

	TextPrimary   lipgloss.Color
	TextSecondary lipgloss.Color
	TextMuted     lipgloss.Color

	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Info    lipgloss.Color

	Border lipgloss.Color

	// Shown while the screen recorder runs.
	Recording lipgloss.Color
}

var DarkTheme = Theme{
	Primary:   lipgloss.Color("#818CF8"),
	Secondary: lipgloss.Color("#22D3EE"),
	Accent:    lipgloss.Color("#F472B6"),

	TextPrimary:   lipgloss.Color("#F1F5F9"),
	TextSecondary: lipgloss.Color("#94A3B8"),
	TextMuted:     lipgloss.Color("#64748B"),

	Success: lipgloss.Color("#34D399"),
	Warning: lipgloss.Color("#FBBF24"),
	Error:   lipgloss.Color("#FB7185"),
	Info:    lipgloss.Color("#60A5FA"),

	Border: lipgloss.Color("#27272A"),

	Recording: lipgloss.Color("#F43F5E"),
}

var LightTheme = Theme{
	Primary:   lipgloss.Color("#4F46E5"),
	Secondary: lipgloss.Color("#0891B2"),
	Accent:    lipgloss.Color("#DB2777"),

	TextPrimary:   lipgloss.Color("#18181B"),
	TextSecondary: lipgloss.Color("#52525B"),
	TextMuted:     lipgloss.Color("#A1A1AA"),

	Success: lipgloss.Color("#10B981"),
	Warning: lipgloss.Color("#F59E0B"),
	Error:   lipgloss.Color("#EF4444"),
	Info:    lipgloss.Color("#3B82F6"),

	Border: lipgloss.Color("#E4E4E7"),

	Recording: lipgloss.Color("#E11D48"),
}

// CurrentTheme is set by InitTheme from the terminal background.
var CurrentTheme = DarkTheme

type Adaptive = lipgloss.AdaptiveColor

func adaptive(pick func(Theme) lipgloss.Color) Adaptive {
	return Adaptive{Light: string(pick(LightTheme)), Dark: string(pick(DarkTheme))}
}

var (
	FgPrimary   = adaptive(func(t Theme) lipgloss.Color { return t.Primary })
	FgSecondary = adaptive(func(t Theme) lipgloss.Color { return t.Secondary })
	FgMuted     = adaptive(func(t Theme) lipgloss.Color { return t.TextMuted })
	FgError     = adaptive(func(t Theme) lipgloss.Color { return t.Error })
	FgSuccess   = adaptive(func(t Theme) lipgloss.Color { return t.Success })
	FgWarning   = adaptive(func(t Theme) lipgloss.Color { return t.Warning })
	FgRecording = adaptive(func(t Theme) lipgloss.Color { return t.Recording })
	BorderColor = adaptive(func(t Theme) lipgloss.Color { return t.Border })
)

// InitTheme sets CurrentTheme and reports whether the terminal is dark.
func InitTheme() bool {
	dark := lipgloss.HasDarkBackground()
	if dark {
		CurrentTheme = DarkTheme
	} else {
		CurrentTheme = LightTheme
	}
	return dark
}

// GlamourStyle names the glamour style matching CurrentTheme.
func GlamourStyle() string {
	if CurrentTheme == LightTheme {
		return "light"
	}
	return "dark"
}
