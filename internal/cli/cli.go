// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
)

// Version information (set at build time via ldflags)
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents a CLI command type.
type Command int

const (
	// CmdTUI starts the interactive TUI (default).
	CmdTUI Command = iota
	// CmdAsk sends a single prompt and prints the reply.
	CmdAsk
	// CmdRepl starts the line-mode chat.
	CmdRepl
	// CmdKey manages the stored API key.
	CmdKey
	// CmdModels lists or picks a model.
	CmdModels
	// CmdConfig shows or edits the configuration.
	CmdConfig
	// CmdTheme toggles the persisted theme.
	CmdTheme
	// CmdVersion shows version information.
	CmdVersion
	// CmdHelp shows help information.
	CmdHelp
)

// String returns the command name.
func (c Command) String() string {
	switch c {
	case CmdTUI:
		return "tui"
	case CmdAsk:
		return "ask"
	case CmdRepl:
		return "repl"
	case CmdKey:
		return "key"
	case CmdModels:
		return "models"
	case CmdConfig:
		return "config"
	case CmdTheme:
		return "theme"
	case CmdVersion:
		return "version"
	case CmdHelp:
		return "help"
	default:
		return "unknown"
	}
}

// Args holds parsed command-line arguments.
type Args struct {
	// Global flags
	Model   string // --model override (ask, repl, tui)
	Verbose bool   // -v/--verbose: console logging on stderr
	Plain   bool   // --plain: no markdown rendering or colors

	// Command-specific
	Subcommand string   // first positional argument (key set, config show, ...)
	Query      string   // prompt text for ask
	ConfigKey  string   // key for config set
	ConfigVal  string   // value for config set / key set
	Pick       bool     // models --pick
	Raw        []string // positional arguments after the command
}

// =============================================================================
// USAGE TEXT
// =============================================================================

const usageText = `quickchat - chat with a hosted language model from your terminal

USAGE:
    quickchat [command] [flags]

COMMANDS:
    (none)              Start the interactive chat
    ask <prompt...>     Send one prompt and print the reply
    repl                Line-mode chat with history
    key status          Show where the API key comes from
    key set [value]     Store an API key (prompts when no value is given)
    key clear           Forget the stored API key
    models [--pick]     List models; --pick chooses and saves one
    config show         Print the effective configuration
    config path         Print the config file location
    config set <k> <v>  Set a preference (model, theme) or a config key
    theme               Toggle between dark and light
    version             Show version information
    help                Show this help

GLOBAL FLAGS:
    -m, --model <id>    Use this model for the request(s)
    -v, --verbose       Log to stderr
    --plain             Print replies without markdown rendering

ENVIRONMENT:
    GROQ_API_KEY                 API key (takes precedence over stored keys)
    QUICKCHAT_ENDPOINT           Completion endpoint URL
    QUICKCHAT_MODE               direct or proxy
    QUICKCHAT_STORE              file, sqlite or memory
    QUICKCHAT_CREDENTIAL_STORE   keyring, store or session
    QUICKCHAT_HOME               Configuration directory (default ~/.quickchat)
    QUICKCHAT_DEBUG              Write a debug log to the configuration directory

KEYS (interactive chat):
    Enter submit | Alt+Enter newline | Ctrl+T theme | Ctrl+Y copy
    Ctrl+O model | Ctrl+E export | Ctrl+L clear | Esc cancel | Ctrl+C quit
`

// PrintUsage prints the usage text to stdout.
func PrintUsage() {
	fmt.Print(usageText)
}

// PrintVersion prints version information to stdout.
func PrintVersion() {
	writeVersion(os.Stdout)
}

func writeVersion(w io.Writer) {
	fmt.Fprintf(w, "quickchat %s\n", Version)
	fmt.Fprintf(w, "  Commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Built:  %s\n", BuildDate)
	fmt.Fprintf(w, "  Go:     %s\n", runtime.Version())
}

// =============================================================================
// PARSING
// =============================================================================

// Parse parses os.Args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses args (without the program name) into a command and its
// arguments. Unknown leading words start the TUI.
func ParseArgs(args []string) (Command, Args) {
	remaining, parsed := parseGlobalFlags(args)
	if len(remaining) == 0 {
		return CmdTUI, parsed
	}

	cmd := strings.ToLower(remaining[0])
	rest := remaining[1:]
	parsed.Raw = rest

	switch cmd {
	case "ask", "a":
		parsed.Query = strings.Join(rest, " ")
		return CmdAsk, parsed

	case "repl", "chat":
		return CmdRepl, parsed

	case "key", "keys":
		parseSubcommand(&parsed, rest)
		if parsed.Subcommand == "" {
			parsed.Subcommand = "status"
		}
		if len(rest) > 1 {
			parsed.ConfigVal = rest[1]
		}
		return CmdKey, parsed

	case "models", "model":
		p := NewArgParser(rest)
		parsed.Pick = p.BoolFlag("pick") || p.BoolFlag("p")
		return CmdModels, parsed

	case "config", "cfg":
		parseConfigArgs(&parsed, rest)
		return CmdConfig, parsed

	case "theme":
		return CmdTheme, parsed

	case "version", "--version":
		return CmdVersion, parsed

	case "help", "-h", "--help":
		return CmdHelp, parsed

	default:
		parsed.Raw = remaining
		return CmdTUI, parsed
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
// Flags after "--" are left alone so prompts can start with a dash.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsed Args

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch {
		case arg == "--":
			remaining = append(remaining, args[i+1:]...)
			return remaining, parsed
		case arg == "-v" || arg == "--verbose":
			parsed.Verbose = true
		case arg == "--plain":
			parsed.Plain = true
		case arg == "-m" || arg == "--model":
			if i+1 < len(args) {
				i++
				parsed.Model = args[i]
			}
		case strings.HasPrefix(arg, "--model="):
			parsed.Model = strings.TrimPrefix(arg, "--model=")
		default:
			remaining = append(remaining, arg)
		}
	}

	return remaining, parsed
}

func parseSubcommand(args *Args, remaining []string) {
	if len(remaining) > 0 {
		args.Subcommand = strings.ToLower(remaining[0])
	}
}

// parseConfigArgs parses config command specific arguments.
func parseConfigArgs(args *Args, remaining []string) {
	parseSubcommand(args, remaining)
	if args.Subcommand == "" {
		args.Subcommand = "show"
	}
	if len(remaining) > 1 {
		args.ConfigKey = remaining[1]
	}
	if len(remaining) > 2 {
		args.ConfigVal = strings.Join(remaining[2:], " ")
	}
}
