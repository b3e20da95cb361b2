package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	flag "github.com/spf13/pflag"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	os.Exit(runMain(os.Args, DefaultEnv()))
}

// runMain dispatches a command and returns the process exit code.
func runMain(args []string, env *Environment) int {
	if len(args) < 2 {
		printUsage(env.Stderr)
		return ExitUsage
	}

	if err := loadEnvFile(env.EnvFile); err != nil {
		fmt.Fprintln(env.Stderr, "markforge:", err)
		return exitCodeFor(err)
	}

	ctx, stop := notifyContext(context.Background())
	defer stop()

	cmd, rest := args[1], args[2:]
	var err error
	switch cmd {
	case "render":
		err = runRender(ctx, rest, env)
	case "export":
		err = runExport(ctx, rest, env)
	case "edit":
		err = runEdit(ctx, rest, env)
	case "serve":
		err = runServe(ctx, rest, env)
	case "settings":
		err = runSettings(rest, env)
	case "doctor":
		err = runDoctorCmd(ctx, rest, env)
	case "version", "--version":
		fmt.Fprintf(env.Stdout, "markforge %s\n", Version)
	case "help", "-h", "--help":
		err = runHelp(rest, env)
	default:
		fmt.Fprintf(env.Stderr, "markforge: unknown command %q\n\n", cmd)
		printUsage(env.Stderr)
		return ExitUsage
	}

	if err == nil || errors.Is(err, flag.ErrHelp) {
		return ExitSuccess
	}
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		fmt.Fprintln(env.Stderr, "markforge: interrupted")
		return ExitGeneral
	}
	fmt.Fprintf(env.Stderr, "markforge %s: %v%s\n", cmd, err, commandHint(cmd, err))
	return exitCodeFor(err)
}

// commandHint returns a hint for err unless one is already attached. Export
// prints hints per file.
func commandHint(cmd string, err error) string {
	if cmd == "export" || strings.Contains(err.Error(), "hint:") {
		return ""
	}
	return errorHint(err)
}
