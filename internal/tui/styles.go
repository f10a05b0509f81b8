package tui

import "github.com/charmbracelet/lipgloss"

// Colors using AdaptiveColor for light/dark terminal support.
var (
	colorWhite  = lipgloss.AdaptiveColor{Light: "0", Dark: "15"}
	colorDim    = lipgloss.AdaptiveColor{Light: "242", Dark: "240"}
	colorGreen  = lipgloss.AdaptiveColor{Light: "28", Dark: "40"}
	colorRed    = lipgloss.AdaptiveColor{Light: "160", Dark: "196"}
	colorYellow = lipgloss.AdaptiveColor{Light: "136", Dark: "220"}
	colorPurple = lipgloss.AdaptiveColor{Light: "91", Dark: "141"}
	colorCyan   = lipgloss.AdaptiveColor{Light: "30", Dark: "45"}
)

// Layout styles.
var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorDim).
			Width(12)

	valueStyle = lipgloss.NewStyle().
			Foreground(colorWhite)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorRed)

	hintStyle = lipgloss.NewStyle().
			Foreground(colorDim)
)

// Mute badge styles.
var (
	badgeBase = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 2).
			MarginTop(1).
			MarginBottom(1)

	badgeMutedStyle   = badgeBase.Foreground(lipgloss.Color("15")).Background(colorRed)
	badgeLiveStyle    = badgeBase.Foreground(lipgloss.Color("0")).Background(colorGreen)
	badgeUnknownStyle = badgeBase.Foreground(lipgloss.Color("0")).Background(colorYellow)
	badgeIdleStyle    = badgeBase.Foreground(colorDim)
	badgeTalkingStyle = badgeBase.Foreground(lipgloss.Color("15")).Background(colorPurple)
)
