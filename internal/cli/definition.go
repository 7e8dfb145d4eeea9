package cli

import "fastrelay/internal/global"

func DefineOptions() (cmdOpts *global.CommandSet) {
	root := &global.CommandSet{
		Description:     "FastRelay",
		FullDescription: "  Chain-relay broadcast of UDP datagrams at the packet layer",
		CommandName:     RootCLICommand,
		ChildCommands:   make(map[string]*global.CommandSet),
	}

	root.ChildCommands["relay"] = &global.CommandSet{
		CommandName:     "relay",
		Description:     "Run the Relay Daemon",
		FullDescription: "Loads the configured routing table and relays broadcast frames in userspace or through the kernel program",
	}

	root.ChildCommands["inspect"] = &global.CommandSet{
		CommandName:     "inspect",
		UsageOption:     "[frame file|-]",
		Description:     "Trace a Frame",
		FullDescription: "Runs one Ethernet frame and every clone it spawns through the pipeline against a configuration, printing each disposition",
	}

	root.ChildCommands["craft"] = &global.CommandSet{
		CommandName:     "craft",
		Description:     "Build Test Frames",
		FullDescription: "Assembles broadcast or metadata frames in the wire layout (hex dump on a terminal, raw bytes otherwise)",
	}

	root.ChildCommands["stats"] = &global.CommandSet{
		CommandName:     "stats",
		UsageOption:     "[namespace]",
		Description:     "Query Relay Metrics",
		FullDescription: "Reads samples, aggregates or metric definitions from a running relay's local query server",
	}

	root.ChildCommands["configure"] = &global.CommandSet{
		CommandName:     "configure",
		Description:     "Setup Actions",
		FullDescription: "Write a template configuration, install or remove the service",
	}

	root.ChildCommands["version"] = &global.CommandSet{
		CommandName:     "version",
		Description:     "Show Version Information",
		FullDescription: "Display meta information about program",
	}

	cmdOpts = root
	return
}
