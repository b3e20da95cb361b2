package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: markforge <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  edit       Edit a Markdown file with a live outline")
	fmt.Fprintln(w, "  serve      Preview a Markdown file in the browser")
	fmt.Fprintln(w, "  render     Print the HTML fragment of a Markdown file")
	fmt.Fprintln(w, "  export     Export Markdown files to HTML or PDF")
	fmt.Fprintln(w, "  settings   Show or change saved editor settings")
	fmt.Fprintln(w, "  doctor     Check the environment")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'markforge help <command>' for details on a specific command.")
}

func printCommonFlags(w io.Writer) {
	fmt.Fprintln(w, "Common:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Show debug logs")
}

func printRenderFlags(w io.Writer) {
	fmt.Fprintln(w, "Rendering:")
	fmt.Fprintln(w, "      --math <engine>       Math engine: katex, mathml")
	fmt.Fprintln(w, "      --highlight <style>   Code highlight style (chroma name)")
	fmt.Fprintln(w, "      --sanitizer <mode>    Sanitizer: blocklist, policy")
	fmt.Fprintln(w, "      --raw-html            Keep raw HTML from the source (still sanitized)")
}

// printEditUsage prints usage for the edit command.
func printEditUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: markforge edit [file] [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Edit a Markdown file in the terminal. Without a file, a welcome")
	fmt.Fprintln(w, "document is loaded.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Keys:")
	fmt.Fprintln(w, "  ctrl+n new   ctrl+o open   ctrl+s save   ctrl+a save as")
	fmt.Fprintln(w, "  ctrl+e export HTML   ctrl+p export PDF   ctrl+q quit")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "      --last                Reopen the last opened file")
	fmt.Fprintln(w, "      --log-file <path>     Write logs to a file")
	fmt.Fprintln(w)
	printRenderFlags(w)
	fmt.Fprintln(w)
	printCommonFlags(w)
}

// printServeUsage prints usage for the serve command.
func printServeUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: markforge serve <file> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Serve a live preview of a Markdown file. The page reloads when the")
	fmt.Fprintln(w, "file or its directory changes.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -a, --addr <host:port>    Listen address (default: 127.0.0.1:8080)")
	fmt.Fprintln(w, "      --no-reload           Disable live reload")
	fmt.Fprintln(w)
	printRenderFlags(w)
	fmt.Fprintln(w)
	printCommonFlags(w)
}

// printRenderUsage prints usage for the render command.
func printRenderUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: markforge render <file|-> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Print the sanitized HTML fragment of a Markdown file, or of stdin with -.")
	fmt.Fprintln(w)
	printRenderFlags(w)
	fmt.Fprintln(w)
	printCommonFlags(w)
}

// printExportUsage prints usage for the export command.
func printExportUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: markforge export <file|dir>... [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Export Markdown files to standalone HTML or PDF. Directories are")
	fmt.Fprintln(w, "searched recursively.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Export:")
	fmt.Fprintln(w, "  -f, --format <fmt>        Output format: html, pdf (default: pdf)")
	fmt.Fprintln(w, "  -o, --output <path>       Output file or directory")
	fmt.Fprintln(w, "  -w, --workers <n>         Parallel workers (0 = auto)")
	fmt.Fprintln(w, "  -t, --timeout <dur>       PDF generation timeout (e.g., 30s, 2m)")
	fmt.Fprintln(w, "      --style <name>        CSS style name")
	fmt.Fprintln(w, "      --assets <dir>        Directory with styles/ and templates/")
	fmt.Fprintln(w, "      --lang <tag>          Document language")
	fmt.Fprintln(w)
	printRenderFlags(w)
	fmt.Fprintln(w)
	printCommonFlags(w)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  markforge export notes.md")
	fmt.Fprintln(w, "  markforge export -f html -o site/ docs/")
	fmt.Fprintln(w, "  markforge export --math mathml -o report.pdf report.md")
}

// printSettingsUsage prints usage for the settings command.
func printSettingsUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: markforge settings <subcommand> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Subcommands:")
	fmt.Fprintln(w, "  get <key> [default]       Print a value")
	fmt.Fprintln(w, "  set <key> <value>         Store a value (JSON, or a plain string)")
	fmt.Fprintln(w, "  delete <key>              Remove a key")
	fmt.Fprintln(w, "  clear                     Remove every key")
	fmt.Fprintln(w, "  list                      Print all settings as JSON")
	fmt.Fprintln(w, "  path                      Print the settings file path")
	fmt.Fprintln(w)
	printCommonFlags(w)
}

// printDoctorUsage prints usage for the doctor command.
func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: markforge doctor [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check Chrome, configuration, math engines and the temp directory.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "      --json                Print the report as JSON")
	fmt.Fprintln(w)
	printCommonFlags(w)
}

// printVersionUsage prints usage for the version command.
func printVersionUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: markforge version")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Show version information.")
}

// runHelp prints help for a command, or the main usage.
func runHelp(args []string, env *Environment) error {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return nil
	}

	switch args[0] {
	case "edit":
		printEditUsage(env.Stdout)
	case "serve":
		printServeUsage(env.Stdout)
	case "render":
		printRenderUsage(env.Stdout)
	case "export":
		printExportUsage(env.Stdout)
	case "settings":
		printSettingsUsage(env.Stdout)
	case "doctor":
		printDoctorUsage(env.Stdout)
	case "version":
		printVersionUsage(env.Stdout)
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: markforge help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		printUsage(env.Stderr)
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}
	return nil
}
