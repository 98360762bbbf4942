// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - The config command.
//
// Subcommands:
//
//	show (default)          Print the effective configuration
//	path                    Print config file locations
//	init [--format toml]    Write the defaults to the config directory
//	validate                Check the effective configuration
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/jeranaias/walletgate/internal/config"
)

// ConfigPaths is the JSON shape of config path.
type ConfigPaths struct {
	TOML     string `json:"toml"`
	JSON     string `json:"json"`
	DataDir  string `json:"data_dir"`
	Database string `json:"database"`
	Audit    string `json:"audit"`
	Log      string `json:"log"`
}

// HandleConfig routes config subcommands. It never opens the wallet.
func HandleConfig(cfg *config.Config, args Args, w io.Writer) error {
	switch args.Subcommand {
	case "show", "":
		if args.JSON {
			return NewJSONResponse("config show", cfg).Write(w)
		}
		fmt.Fprintln(w, cfg.String())
		return nil

	case "path":
		return printConfigPaths(cfg, args, w)

	case "init":
		return initConfig(args, w)

	case "validate":
		if err := cfg.Validate(); err != nil {
			return err
		}
		if args.JSON {
			return NewJSONResponse("config validate", map[string]bool{"valid": true}).Write(w)
		}
		printSuccess(w, "Configuration is valid")
		return nil

	default:
		return usagef("unknown config subcommand %q", args.Subcommand)
	}
}

func printConfigPaths(cfg *config.Config, args Args, w io.Writer) error {
	tomlPath, err := config.ConfigPathTOML()
	if err != nil {
		return err
	}
	jsonPath, err := config.ConfigPathJSON()
	if err != nil {
		return err
	}
	paths := ConfigPaths{
		TOML:     tomlPath,
		JSON:     jsonPath,
		DataDir:  cfg.DataDir(),
		Database: cfg.DatabasePath(),
		Audit:    cfg.AuditPath(),
		Log:      cfg.LogPath(),
	}
	if args.JSON {
		return NewJSONResponse("config path", paths).Write(w)
	}
	printField(w, "Config (TOML)", paths.TOML)
	printField(w, "Config (JSON)", paths.JSON)
	printField(w, "Data directory", paths.DataDir)
	printField(w, "Database", paths.Database)
	printField(w, "Audit log", paths.Audit)
	printField(w, "Log", paths.Log)
	return nil
}

func initConfig(args Args, w io.Writer) error {
	var (
		path string
		err  error
		save func(*config.Config, string) error
	)
	switch args.Format {
	case "toml", "":
		path, err = config.ConfigPathTOML()
		save = config.SaveTOML
	case "json":
		path, err = config.ConfigPathJSON()
		save = config.SaveJSON
	default:
		return usagef("unknown config format %q", args.Format)
	}
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil && !args.Confirm {
		return usagef("%s already exists; pass --confirm to overwrite", path)
	}
	if err := save(config.Default(), path); err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("config init", map[string]string{"path": path}).Write(w)
	}
	printSuccess(w, "Wrote %s", path)
	return nil
}
