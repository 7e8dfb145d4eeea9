package install

import (
	"fastrelay/internal/config"
	"fmt"
	"os"
	"path/filepath"
)

// Writes the sample configuration to path. An existing file is only replaced
// when force is set or an interactive user confirms.
func InstallConfig(path string, force bool) (err error) {
	if path == "" {
		err = fmt.Errorf("specify config file path via the --config/-c arguments")
		return
	}

	err = os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		err = fmt.Errorf("failed to create configuration directory: %w", err)
		return
	}

	_, err = os.Stat(path)
	if err == nil && !force {
		// No terminal - no overwrite
		if !interactive() {
			fmt.Printf("Existing configuration file present, not overwriting\n")
			return
		}

		question := fmt.Sprintf("Configuration file already exists at '%s'. Are you SURE you want to overwrite it? (yes/no): ", path)
		if !confirm(os.Stdin, question) {
			fmt.Printf("Not overwriting configuration file\n")
			return
		}
	}

	err = config.WriteSample(path)
	if err != nil {
		return
	}

	fmt.Printf("Successfully wrote template configuration file to '%s'\n", path)
	return
}
