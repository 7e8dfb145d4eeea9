package cli

import (
	"context"
	"encoding/hex"
	"fastrelay/internal/admission"
	"fastrelay/internal/config"
	"fastrelay/internal/directory"
	"fastrelay/internal/freshness"
	"fastrelay/internal/global"
	"fastrelay/internal/logctx"
	"fastrelay/internal/packet"
	"fastrelay/internal/pipeline"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

var dispositionColors = map[pipeline.Disposition]*color.Color{
	pipeline.Relay:    color.New(color.FgGreen),
	pipeline.Bounce:   color.New(color.FgYellow),
	pipeline.Drop:     color.New(color.FgRed),
	pipeline.Redirect: color.New(color.FgCyan),
	pipeline.Adopt:    color.New(color.FgBlue),
}

// Disposition name, colored on a terminal
func colorDisposition(disposition pipeline.Disposition) string {
	if c, ok := dispositionColors[disposition]; ok {
		return c.Sprint(disposition.String())
	}
	return disposition.String()
}

// Traces one frame through the pipeline against a configuration
func InspectMode(ctx context.Context, commandname string, args []string) {
	var configPath string
	var hexFrame string
	var queue int
	var reentry bool
	var dump bool

	commandFlags := flag.NewFlagSet(commandname, flag.ExitOnError)
	SetGlobalArguments(commandFlags)
	SetCommon(commandFlags, &configPath)
	commandFlags.StringVar(&hexFrame, "x", "", "Frame as hex text instead of a file")
	commandFlags.StringVar(&hexFrame, "hex", "", "Frame as hex text instead of a file")
	commandFlags.IntVar(&queue, "q", 0, "Receive queue the frame arrives on")
	commandFlags.IntVar(&queue, "queue", 0, "Receive queue the frame arrives on")
	commandFlags.BoolVar(&reentry, "reentry", false, "Treat the frame as a re-entering clone (skips admission)")
	commandFlags.BoolVar(&dump, "dump", false, "Hex dump every frame that would be transmitted")

	commandFlags.Usage = func() {
		PrintHelpMenu(commandFlags, commandname, global.CmdOpts)
	}
	commandFlags.Parse(args)
	logctx.SetLogLevel(ctx, global.Verbosity)

	var path string
	if commandFlags.NArg() > 0 {
		path = commandFlags.Arg(0)
	}
	if path == "" && hexFrame == "" {
		PrintHelpMenu(commandFlags, commandname, global.CmdOpts)
		os.Exit(1)
	}

	frame, err := readFrameInput(hexFrame, path, os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	err = traceFrame(ctx, cfg, pipeline.Packet{Queue: queue, Frame: frame, Reentry: reentry}, dump, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Frame bytes from hex text, a file, or stdin when path is "-"
func readFrameInput(hexFrame string, path string, stdin io.Reader) (frame []byte, err error) {
	if hexFrame != "" {
		cleaned := strings.NewReplacer(" ", "", "\n", "", "\t", "", ":", "").Replace(hexFrame)
		frame, err = hex.DecodeString(cleaned)
		if err != nil {
			err = fmt.Errorf("invalid hex frame: %w", err)
		}
		return
	}

	if path == "-" {
		frame, err = io.ReadAll(stdin)
	} else {
		frame, err = os.ReadFile(path)
	}
	if err != nil {
		err = fmt.Errorf("failed to read frame: %w", err)
		return
	}
	if len(frame) == 0 {
		err = fmt.Errorf("frame input is empty")
	}
	return
}

// Admission socket that only records what would have been redirected
type traceSocket struct {
	frames int
}

func (socket *traceSocket) WriteFrame(frame []byte) (err error) {
	socket.frames++
	return
}

// Runs pkt and its clones through an engine built from cfg, one line per activation
func traceFrame(ctx context.Context, cfg config.Config, pkt pipeline.Packet, dump bool, out io.Writer) (err error) {
	dir := directory.New()
	err = dir.Replace(cfg.Targets)
	if err != nil {
		return
	}
	reconciler := freshness.New()
	reconciler.Reseed(cfg.Seeds)

	filter := admission.New(cfg.AdmissionPort)
	for queue := range cfg.Admission {
		err = filter.BindQueue(queue, &traceSocket{})
		if err != nil {
			return
		}
	}

	engine := pipeline.New(filter, dir, reconciler)
	activations, err := engine.Drain(ctx, pkt, func(current pipeline.Packet, result pipeline.Result) {
		fmt.Fprintf(out, "queue=%d reentry=%t type=%s key=%s -> %s", current.Queue, current.Reentry, result.Type, result.Key, colorDisposition(result.Disposition))
		if result.Disposition == pipeline.Relay {
			fmt.Fprintf(out, " slot=%d", result.Index)
		}
		if result.Clone != nil {
			fmt.Fprintf(out, " (clone queued)")
		}
		if result.Err != nil {
			fmt.Fprintf(out, " [%v]", result.Err)
		}
		fmt.Fprintln(out)

		if !result.Disposition.Transmits() {
			return
		}
		view, parseErr := packet.Parse(current.Frame)
		if parseErr == nil {
			fmt.Fprintf(out, "  out: %s\n", view)
		}
		if dump {
			fmt.Fprint(out, hex.Dump(current.Frame))
		}
	})
	fmt.Fprintf(out, "%d activations\n", activations)
	return
}
