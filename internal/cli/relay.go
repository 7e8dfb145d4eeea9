package cli

import (
	"context"
	"fastrelay/internal/config"
	"fastrelay/internal/dataplane"
	"fastrelay/internal/global"
	"fastrelay/internal/lifecycle"
	"fastrelay/internal/logctx"
	"flag"
	"fmt"
	"os"
)

// Runs the relay daemon until a terminating signal
func RelayMode(ctx context.Context, commandname string, args []string) {
	var configPath string
	commandFlags := flag.NewFlagSet(commandname, flag.ExitOnError)
	SetGlobalArguments(commandFlags)
	SetCommon(commandFlags, &configPath)

	commandFlags.Usage = func() {
		PrintHelpMenu(commandFlags, commandname, global.CmdOpts)
	}
	commandFlags.Parse(args)
	logctx.SetLogLevel(ctx, global.Verbosity)

	daemonConfig, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	daemon := dataplane.NewDaemon(daemonConfig, configPath)
	err = daemon.Start(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting relay daemon: %v\n", err)
		os.Exit(1)
	}

	err = lifecycle.NotifyReady(ctx)
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "Systemd notify ready failed: %v\n", err)
	}

	// Blocks until shutdown finished
	lifecycle.SignalHandler(ctx, daemon)
}
