package install

import (
	"fmt"
	"os"
)

func installBinary() (err error) {
	selfPath, err := os.Executable()
	if err != nil {
		return
	}
	if selfPath == DefaultBinaryPath {
		return
	}

	err = os.Rename(selfPath, DefaultBinaryPath)
	if err != nil {
		err = fmt.Errorf("failed to move: %w", err)
		return
	}

	fmt.Printf("Successfully installed binary to '%s'\n", DefaultBinaryPath)
	return
}

func uninstallBinary() (err error) {
	err = os.Remove(DefaultBinaryPath)
	if err != nil && !os.IsNotExist(err) {
		return
	}
	err = nil

	fmt.Printf("Successfully removed binary from '%s'\n", DefaultBinaryPath)
	return
}
