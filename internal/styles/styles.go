package styles

import "github.com/charmbracelet/lipgloss"

var (
	ContentWidth = 54
)

// Colors come from the adaptive palette in theme.go.
var (
	onAccent = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#0B0B0F"}
	bodyText = adaptive(func(t Theme) lipgloss.Color { return t.TextPrimary })

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(FgPrimary).
			Padding(0, 1)

	UserLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(onAccent).
			Background(FgSecondary).
			Padding(0, 1).
			MarginRight(1)

	UserMsgStyle = lipgloss.NewStyle().
			Foreground(bodyText).
			PaddingLeft(2).
			BorderLeft(true).
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(FgSecondary)

	AiLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(onAccent).
			Background(FgPrimary).
			Padding(0, 1).
			MarginRight(1)

	AiMsgStyle = lipgloss.NewStyle().
			Foreground(bodyText).
			PaddingTop(1).
			BorderLeft(true).
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(FgPrimary)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(FgError).
			Bold(true)

	InputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(FgPrimary).
			Padding(0, 1)

	WelcomeTitleStyle = lipgloss.NewStyle().
				Foreground(bodyText).
				Bold(true)

	WelcomeSubtitleStyle = lipgloss.NewStyle().
				Foreground(FgMuted).
				Italic(true)

	ModalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(FgPrimary).
			Padding(1, 2)

	ModalTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(FgPrimary).
			Width(ContentWidth).
			MarginBottom(1)

	ModalItemStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Width(ContentWidth)

	ModalHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				PaddingLeft(1).
				Width(ContentWidth)

	ModalSelectedStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Width(ContentWidth).
				Background(FgPrimary).
				Foreground(onAccent)

	HintColor = FgMuted

	StatusStyle = lipgloss.NewStyle().
			Foreground(FgSecondary)

	RecordingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(FgRecording).
			Padding(0, 1)

	ChipStyle = lipgloss.NewStyle().
			Foreground(onAccent).
			Background(FgSecondary).
			Padding(0, 1).
			MarginRight(1)

	KeyStyle = lipgloss.NewStyle().
			Foreground(FgWarning).
			Bold(true).
			Width(12)

	BodyStyle = lipgloss.NewStyle().Foreground(bodyText)
)

// Model selector group headers, keyed by AIModel.Preview.
var GroupColors = map[bool]lipgloss.AdaptiveColor{
	false: FgSuccess,
	true:  FgWarning,
}
