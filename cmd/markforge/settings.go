package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/alnah/markforge/internal/hints"
	"github.com/alnah/markforge/internal/settings"
)

// runSettings inspects and edits the persisted editor settings.
func runSettings(args []string, env *Environment) error {
	fs := newFlagSet("settings", env.Stderr, printSettingsUsage)
	var common commonFlags
	addCommonFlags(fs, &common)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		printSettingsUsage(env.Stderr)
		return fmt.Errorf("%w: settings needs a subcommand", ErrUsage)
	}

	cfg, logger, err := setupCommand(fs, common, nil, env.Stderr)
	if err != nil {
		return err
	}
	store, err := openSettings(cfg, logger)
	if err != nil {
		return err
	}

	sub, rest := fs.Arg(0), fs.Args()[1:]
	err = runSettingsSub(store, sub, rest, env)
	if errors.Is(err, settings.ErrSave) {
		return fmt.Errorf("%w%s", err, hints.ForSettingsSave(store.Path()))
	}
	return err
}

func runSettingsSub(store *settings.Store, sub string, args []string, env *Environment) error {
	switch sub {
	case "get":
		if len(args) < 1 || len(args) > 2 {
			return fmt.Errorf("%w: settings get <key> [default]", ErrUsage)
		}
		var def any
		if len(args) == 2 {
			def = parseValue(args[1])
		}
		v := store.Get(args[0], def)
		if v == nil {
			return nil
		}
		return printValue(env, v)

	case "set":
		if len(args) != 2 {
			return fmt.Errorf("%w: settings set <key> <value>", ErrUsage)
		}
		return store.Set(args[0], parseValue(args[1]))

	case "delete":
		if len(args) != 1 {
			return fmt.Errorf("%w: settings delete <key>", ErrUsage)
		}
		return store.Delete(args[0])

	case "clear":
		return store.Clear()

	case "list":
		out, err := store.Snapshot()
		if err != nil {
			return err
		}
		fmt.Fprintln(env.Stdout, string(out))
		return nil

	case "path":
		fmt.Fprintln(env.Stdout, store.Path())
		return nil

	default:
		return fmt.Errorf("%w: unknown settings subcommand %q", ErrUsage, sub)
	}
}

// parseValue reads s as JSON so numbers, booleans, arrays and objects keep
// their type. Anything else is stored as a plain string.
func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

// printValue prints strings bare and every other value as JSON.
func printValue(env *Environment, v any) error {
	if s, ok := v.(string); ok {
		fmt.Fprintln(env.Stdout, s)
		return nil
	}
	out, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %v", settings.ErrValue, err)
	}
	fmt.Fprintln(env.Stdout, strings.TrimSpace(string(out)))
	return nil
}
