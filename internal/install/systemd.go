package install

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Unit file text for the given paths
func renderUnit(binaryPath string, configPath string) (unit string) {
	unit = strings.Replace(unitTemplate, "$executableFilePath", binaryPath, 1)
	unit = strings.Replace(unit, "$configFilePath", configPath, 1)
	return
}

func installService() (err error) {
	err = os.WriteFile(unitFilePath, []byte(renderUnit(DefaultBinaryPath, DefaultConfigPath)), 0644)
	if err != nil {
		return
	}

	output, err := exec.Command("systemctl", "daemon-reload").CombinedOutput()
	if err != nil {
		err = fmt.Errorf("failed to reload systemd units: %w: %s", err, string(output))
		return
	}

	// Disabled status is exit code 1
	output, _ = exec.Command("systemctl", "is-enabled", unitName).CombinedOutput()
	if strings.TrimSpace(string(output)) != "enabled" {
		output, err = exec.Command("systemctl", "enable", unitName).CombinedOutput()
		if err != nil {
			err = fmt.Errorf("failed to enable systemd service: %w: %s", err, string(output))
			return
		}
	}

	fmt.Printf("Successfully installed Systemd service\n")
	fmt.Printf("  IMPORTANT: modify the configuration to your needs and start the service with 'systemctl start %s'\n", unitName)
	return
}

func uninstallService() (err error) {
	output, _ := exec.Command("systemctl", "is-enabled", unitName).CombinedOutput()
	if strings.TrimSpace(string(output)) == "enabled" {
		output, err = exec.Command("systemctl", "disable", "--now", unitName).CombinedOutput()
		if err != nil {
			err = fmt.Errorf("failed to disable systemd service: %w: %s", err, string(output))
			return
		}
	}

	err = os.Remove(unitFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			err = nil
		}
		return
	}

	output, err = exec.Command("systemctl", "daemon-reload").CombinedOutput()
	if err != nil {
		err = fmt.Errorf("failed to reload systemd units: %w: %s", err, string(output))
		return
	}

	fmt.Printf("Successfully uninstalled systemd service\n")
	return
}
