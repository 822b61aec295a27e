package console

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/multiplay/internal/game/lobby"
)

func TestColorize(t *testing.T) {
	assert.Equal(t, "\033[31mError: Connection Lost\033[0m", Colorize(Red, "Error: Connection Lost"))
}

func TestColorf(t *testing.T) {
	assert.Equal(t, "\033[32m3/5\033[0m", Colorf(Green, "%d/%d", 3, 5))
}

func TestStatusColor(t *testing.T) {
	assert.Equal(t, Gray, StatusColor(lobby.NotEnoughPlayers))
	assert.Equal(t, Red, StatusColor(lobby.NotReady))
	assert.Equal(t, Green, StatusColor(lobby.Ready))
}

func TestStripANSI(t *testing.T) {
	input := "\033[31mred\033[0m normal \033[1m\033[32mbold green\033[0m"
	assert.Equal(t, "red normal bold green", StripANSI(input))
	assert.Equal(t, "plain text", StripANSI("plain text"))
	assert.Equal(t, "", StripANSI(""))
	assert.Equal(t, "cut \033[3", StripANSI("cut \033[3"))
}

func TestPropertyStripANSIInversesColorize(t *testing.T) {
	colors := []string{Red, Green, Yellow, Cyan, White, Gray, Bold, Dim}
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.StringMatching(`[a-zA-Z0-9 ]{0,50}`).Draw(t, "text")
		color := rapid.SampledFrom(colors).Draw(t, "color")
		assert.Equal(t, text, StripANSI(Colorize(color, text)))
	})
}

func TestPropertyStripANSIOutputShorterOrEqual(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.String().Draw(t, "text")
		assert.LessOrEqual(t, len(StripANSI(text)), len(text))
	})
}
