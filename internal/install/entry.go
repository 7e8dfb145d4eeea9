// Handles installation of the binary, template configuration and service unit
package install

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Full installation (idempotent)
func Run() {
	if os.Geteuid() != 0 {
		fmt.Fprintf(os.Stderr, "Installation must be run as root\n")
		os.Exit(1)
	}

	err := installBinary()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error installing binary: %v\n", err)
		os.Exit(1)
	}

	err = InstallConfig(DefaultConfigPath, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error with template config: %v\n", err)
		os.Exit(1)
	}

	err = installService()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error with Systemd service: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Installation completed successfully\n")
}

// Full uninstall
func Remove() {
	if interactive() {
		if !confirm(os.Stdin, "Are you SURE you want to uninstall? (this will remove the configuration file) (yes/no): ") {
			fmt.Printf("Aborting uninstall\n")
			return
		}
	}

	if os.Geteuid() != 0 {
		fmt.Fprintf(os.Stderr, "Uninstall must be run as root\n")
		os.Exit(1)
	}

	err := uninstallService()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error with Systemd service: %v\n", err)
	}

	err = uninstallBinary()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error removing binary: %v\n", err)
	}

	err = os.Remove(DefaultConfigPath)
	if err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error removing configuration: %v\n", err)
	} else {
		fmt.Printf("Successfully removed configuration file '%s'\n", DefaultConfigPath)
	}
}

func interactive() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Prints question and reads a yes/no answer, anything but "yes" declines
func confirm(input io.Reader, question string) (accepted bool) {
	fmt.Print(question)
	reader := bufio.NewReader(input)
	answer, _ := reader.ReadString('\n')
	accepted = strings.ToLower(strings.TrimSpace(answer)) == "yes"
	return
}
