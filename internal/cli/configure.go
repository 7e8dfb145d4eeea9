package cli

import (
	"fastrelay/internal/global"
	"fastrelay/internal/install"
	"flag"
	"fmt"
	"os"
)

// Setup/installation options
func SetupMode(commandname string, args []string) {
	var configPath string
	var newTemplate bool
	var force bool
	var installAll bool
	var uninstallAll bool

	commandFlags := flag.NewFlagSet(commandname, flag.ExitOnError)
	SetCommon(commandFlags, &configPath)
	commandFlags.BoolVar(&newTemplate, "config-template", false, "Write a template configuration (using the config argument)")
	commandFlags.BoolVar(&force, "force", false, "Overwrite an existing configuration without asking")
	commandFlags.BoolVar(&installAll, "install", false, "Install/Upgrade the binary, template configuration and systemd service")
	commandFlags.BoolVar(&uninstallAll, "uninstall", false, "Remove the binary, configuration and systemd service")

	commandFlags.Usage = func() {
		PrintHelpMenu(commandFlags, commandname, global.CmdOpts)
	}
	if len(args) < 1 {
		PrintHelpMenu(commandFlags, commandname, global.CmdOpts)
		os.Exit(1)
	}
	commandFlags.Parse(args)

	var err error
	if newTemplate {
		err = install.InstallConfig(configPath, force)
	} else if installAll {
		install.Run()
	} else if uninstallAll {
		install.Remove()
	} else {
		PrintHelpMenu(commandFlags, commandname, global.CmdOpts)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
