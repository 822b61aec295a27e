package console

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/multiplay/internal/game/command"
	"github.com/cory-johannsen/multiplay/internal/game/lobby"
	"github.com/cory-johannsen/multiplay/internal/game/modes"
	"github.com/cory-johannsen/multiplay/internal/game/session"
)

// RenderServerList formats the server browser. Row numbers are the indexes
// accepted by the join command.
func RenderServerList(entries []session.ServerEntry, catalog *modes.Catalog) string {
	if len(entries) == 0 {
		return Colorize(Dim, "No sessions found.") + "\n"
	}
	var b strings.Builder
	b.WriteString(Colorf(Cyan, "  %-3s %-24s %-16s %-8s %s", "#", "Server", "Hosted by", "Players", "Mode"))
	b.WriteString("\n")
	for i, e := range entries {
		players := fmt.Sprintf("%d/%d", e.CurrentPlayers, e.MaxPlayers)
		color := White
		if e.CurrentPlayers >= e.MaxPlayers {
			color = Dim
		}
		fmt.Fprintf(&b, "  %s%-3d%s %s%-24s %-16s %-8s %s%s\n",
			BrightCyan, i, Reset,
			color, e.Name, e.HostedBy, players, catalog.DisplayName(e.GameMode), Reset)
	}
	return b.String()
}

// RenderModes lists the catalog, marking the selected mode.
func RenderModes(catalog *modes.Catalog, selected session.GameMode) string {
	var b strings.Builder
	b.WriteString(Colorize(Cyan, "Game modes:"))
	b.WriteString("\n")
	for _, m := range catalog.All() {
		marker := " "
		if m.GameMode() == selected {
			marker = Colorize(BrightYellow, "*")
		}
		fmt.Fprintf(&b, " %s %d %-16s %s\n", marker, m.Index, m.ID, m.Name)
		if m.Description != "" {
			b.WriteString(Colorf(Dim, "     %s", m.Description))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// RenderHelp lists every command grouped by category.
func RenderHelp(r *command.Registry) string {
	var b strings.Builder
	category := ""
	for _, c := range r.Commands() {
		if c.Category != category {
			category = c.Category
			b.WriteString(Colorize(Cyan, strings.ToUpper(category[:1])+category[1:]+":"))
			b.WriteString("\n")
		}
		line := fmt.Sprintf("  %-22s %s", c.Synopsis(), c.Help)
		if len(c.Aliases) > 0 {
			line += Colorf(Dim, " (%s)", strings.Join(c.Aliases, ", "))
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// RenderReadiness formats the lobby HUD line for the local player.
func RenderReadiness(s lobby.Status) string {
	return "Lobby: " + Colorize(StatusColor(s), s.String())
}

// RenderPeerStatus formats another player's status change.
func RenderPeerStatus(playerID string, s lobby.Status) string {
	return fmt.Sprintf("  %s: %s", Colorize(BrightCyan, playerID), Colorize(StatusColor(s), s.String()))
}

// RenderLobbySummary formats the player count and whether the match can start.
func RenderLobbySummary(count, minPlayers int, allReady bool) string {
	line := fmt.Sprintf("Players: %d (min %d)", count, minPlayers)
	if allReady {
		return line + "  " + Colorize(Green, "All ready")
	}
	return line
}
