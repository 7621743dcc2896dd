package main

import (
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"

	"github.com/charmbracelet/folio/config"
)

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the folio config file",
	Long:    paragraph(fmt.Sprintf("\n%s the folio config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("folio config\nfolio config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	// A broken config file must still be editable.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE: func(*cobra.Command, []string) error {
		path, err := ensureConfigFile()
		if err != nil {
			return err
		}

		c, err := editor.Cmd("folio", path)
		if err != nil {
			return err
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return err
		}

		fmt.Println("Wrote config file to:", path)
		return nil
	},
}

// ensureConfigFile returns the config file in use, writing the defaults to
// it first when it does not exist yet.
func ensureConfigFile() (string, error) {
	file := configFile
	if file == "" && manager != nil {
		file = manager.FileUsed()
	}
	if file == "" {
		file = config.DefaultFile()
	}

	if ext := path.Ext(file); ext != ".yaml" && ext != ".yml" {
		return "", fmt.Errorf("'%s' is not a supported config type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := config.WriteDefault(file); err != nil {
			return "", fmt.Errorf("Could not write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return "", err
	}
	return file, nil
}
