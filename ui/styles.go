package ui

import "github.com/charmbracelet/lipgloss"

var (
	mintGreen = lipgloss.AdaptiveColor{Light: "#89F0CB", Dark: "#89F0CB"}
	darkGreen = lipgloss.AdaptiveColor{Light: "#1C8760", Dark: "#1C8760"}
	green     = lipgloss.Color("#04B575")
	red       = lipgloss.AdaptiveColor{Light: "#FF4672", Dark: "#ED567A"}
	fuchsia   = lipgloss.Color("#EE6FF8")
	gray      = lipgloss.AdaptiveColor{Light: "#909090", Dark: "#626262"}

	statusBarNoteFg = lipgloss.AdaptiveColor{Light: "#656565", Dark: "#7D7D7D"}
	statusBarBg     = lipgloss.AdaptiveColor{Light: "#E6E6E6", Dark: "#242424"}

	logoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ECFD65")).
			Background(fuchsia).
			Bold(true).
			Render

	statusBarNoteStyle = lipgloss.NewStyle().
				Foreground(statusBarNoteFg).
				Background(statusBarBg).
				Render

	statusBarStateStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#949494", Dark: "#5A5A5A"}).
				Background(statusBarBg).
				Render

	statusBarPlayingStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B6FFE4")).
				Background(green).
				Render

	statusBarHelpStyle = lipgloss.NewStyle().
				Foreground(statusBarNoteFg).
				Background(lipgloss.AdaptiveColor{Light: "#DCDCDC", Dark: "#323232"}).
				Render

	statusBarMessageStyle = lipgloss.NewStyle().
				Foreground(mintGreen).
				Background(darkGreen).
				Render

	statusBarErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(red).
				Render

	cursorStyle  = lipgloss.NewStyle().Foreground(fuchsia).Bold(true)
	playingStyle = lipgloss.NewStyle().Foreground(green).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(gray)
	voiceStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#7571F9", Dark: "#A8A4FF"})

	effectBadgeStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#1B1B1B")).
				Background(lipgloss.Color("#F1C069")).
				Padding(0, 1)

	backgroundBadgeStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#1B1B1B")).
				Background(lipgloss.Color("#6FC1F8")).
				Padding(0, 1)

	promptStyle = lipgloss.NewStyle().Foreground(fuchsia)
	errorStyle  = lipgloss.NewStyle().Foreground(red)
)
