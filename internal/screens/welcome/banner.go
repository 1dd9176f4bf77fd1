package welcome

import (
	"charm.land/lipgloss/v2"

	"github.com/abhisek/brainbrew/internal/ui/theme"
)

const bannerArt = `
 ┌┐ ┬─┐┌─┐┬┌┐┌┌┐ ┬─┐┌─┐┬ ┬
 ├┴┐├┬┘├─┤││││├┴┐├┬┘├┤ │││
 └─┘┴└─┴ ┴┴┘└┘└─┘┴└─└─┘└┴┘`

const bannerCompact = "b r a i n b r e w"

// RenderBanner returns the brainbrew banner styled in the primary color.
// Uses a compact fallback for terminals narrower than 32 columns.
func RenderBanner(width int) string {
	style := lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true)

	if width < 32 {
		return style.Render(bannerCompact)
	}
	return style.Render(bannerArt)
}
