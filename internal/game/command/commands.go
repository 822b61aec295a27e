// Package command defines the menu commands a player can type into the
// session client and splits typed lines into a command and its arguments.
package command

// Categories for organizing commands in help output.
const (
	CategoryBrowse = "browse"
	CategoryHost   = "host"
	CategoryLobby  = "lobby"
	CategorySystem = "system"
)

// Handler identifiers mapping commands to console actions.
const (
	HandlerHost       = "host"
	HandlerMode       = "mode"
	HandlerModes      = "modes"
	HandlerRefresh    = "refresh"
	HandlerServers    = "servers"
	HandlerJoin       = "join"
	HandlerReady      = "ready"
	HandlerConnect    = "connect"
	HandlerDisconnect = "disconnect"
	HandlerMenu       = "menu"
	HandlerStatus     = "status"
	HandlerQuit       = "quit"
	HandlerHelp       = "help"
)

// Command defines a player-invocable menu command.
type Command struct {
	// Name is the canonical command name.
	Name string
	// Aliases are alternate names for this command.
	Aliases []string
	// Usage shows the argument form, e.g. "join <index>". Empty means Name.
	Usage string
	// Help is the short help text displayed to players.
	Help string
	// Category groups the command in help output.
	Category string
	// Handler selects the console action.
	Handler string
	// MinArgs is the number of arguments the command requires.
	MinArgs int
}

// Synopsis returns Usage, or Name when the command takes no arguments.
func (c *Command) Synopsis() string {
	if c.Usage != "" {
		return c.Usage
	}
	return c.Name
}

// BuiltinCommands returns every command of the session menu.
func BuiltinCommands() []Command {
	return []Command{
		// Browse commands
		{Name: "refresh", Aliases: []string{"find", "r"}, Help: "Search for sessions", Category: CategoryBrowse, Handler: HandlerRefresh},
		{Name: "servers", Aliases: []string{"list", "ls"}, Help: "Show the last search results", Category: CategoryBrowse, Handler: HandlerServers},
		{Name: "join", Aliases: []string{"j"}, Usage: "join <index>", Help: "Join a listed session", Category: CategoryBrowse, Handler: HandlerJoin, MinArgs: 1},

		// Host commands
		{Name: "host", Aliases: []string{"h"}, Usage: "host [name]", Help: "Host a session under the given name", Category: CategoryHost, Handler: HandlerHost},
		{Name: "mode", Aliases: nil, Usage: "mode <id|index>", Help: "Select the game mode to host", Category: CategoryHost, Handler: HandlerMode, MinArgs: 1},
		{Name: "modes", Aliases: nil, Help: "List the game modes", Category: CategoryHost, Handler: HandlerModes},

		// Lobby commands
		{Name: "ready", Aliases: []string{"rdy"}, Usage: "ready [player]", Help: "Toggle your readiness, or a connected player's", Category: CategoryLobby, Handler: HandlerReady},
		{Name: "connect", Aliases: nil, Usage: "connect <player>", Help: "Record a player joining the lobby", Category: CategoryLobby, Handler: HandlerConnect, MinArgs: 1},
		{Name: "disconnect", Aliases: nil, Usage: "disconnect <player>", Help: "Record a player leaving the lobby", Category: CategoryLobby, Handler: HandlerDisconnect, MinArgs: 1},
		{Name: "menu", Aliases: []string{"leave"}, Help: "Leave the session and return to the main menu", Category: CategoryLobby, Handler: HandlerMenu},

		// System commands
		{Name: "status", Aliases: []string{"st"}, Help: "Show the session state", Category: CategorySystem, Handler: HandlerStatus},
		{Name: "quit", Aliases: []string{"exit", "q"}, Help: "Quit the client", Category: CategorySystem, Handler: HandlerQuit},
		{Name: "help", Aliases: []string{"?"}, Help: "Show available commands", Category: CategorySystem, Handler: HandlerHelp},
	}
}
