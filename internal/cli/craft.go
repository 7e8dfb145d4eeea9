package cli

import (
	"context"
	"encoding/hex"
	"fastrelay/internal/global"
	"fastrelay/internal/network"
	"fastrelay/internal/packet"
	"fastrelay/pkg/protocol"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"golang.org/x/term"
)

type craftOptions struct {
	msgType   string
	key       int
	counter   int
	timestamp int64
	body      string
	src       string
	dst       string
	srcMAC    string
	dstMAC    string
}

// Builds a test frame and writes it to a file or stdout
func CraftMode(ctx context.Context, commandname string, args []string) {
	var opts craftOptions
	var outputPath string
	var forceHex bool
	var autoSource bool

	commandFlags := flag.NewFlagSet(commandname, flag.ExitOnError)
	SetGlobalArguments(commandFlags)
	commandFlags.StringVar(&opts.msgType, "type", "broadcast", "Message type <broadcast|request|response>")
	commandFlags.IntVar(&opts.key, "k", 0, "Routing key <0...999>")
	commandFlags.IntVar(&opts.key, "key", 0, "Routing key <0...999>")
	commandFlags.IntVar(&opts.counter, "counter", 0, "Progress counter for broadcast frames")
	commandFlags.Int64Var(&opts.timestamp, "timestamp", 0, "Metadata timestamp (current unix milliseconds when 0)")
	commandFlags.StringVar(&opts.body, "body", `{}`, "Data section of the payload")
	commandFlags.StringVar(&opts.src, "src", "192.168.0.1:41000", "Source address and port")
	commandFlags.StringVar(&opts.dst, "dst", "192.168.0.2:8000", "Destination address and port")
	commandFlags.StringVar(&opts.srcMAC, "src-mac", "02:00:00:00:00:01", "Source MAC address")
	commandFlags.StringVar(&opts.dstMAC, "dst-mac", "02:00:00:00:00:02", "Destination MAC address")
	commandFlags.StringVar(&outputPath, "o", "", "Write the raw frame to this file")
	commandFlags.StringVar(&outputPath, "output", "", "Write the raw frame to this file")
	commandFlags.BoolVar(&forceHex, "hex", false, "Hex dump even when stdout is not a terminal")
	commandFlags.BoolVar(&autoSource, "auto-src", false, "Use the address and MAC of the interface routing to --dst as the source")

	commandFlags.Usage = func() {
		PrintHelpMenu(commandFlags, commandname, global.CmdOpts)
	}
	commandFlags.Parse(args)

	if opts.timestamp == 0 {
		opts.timestamp = time.Now().UnixMilli()
	}

	if autoSource {
		err := resolveSource(&opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	frame, err := buildCraftFrame(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if outputPath != "" {
		err = os.WriteFile(outputPath, frame, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to write frame: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if forceHex || term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Print(hex.Dump(frame))
		return
	}
	os.Stdout.Write(frame)
}

func buildCraftFrame(opts craftOptions) (frame []byte, err error) {
	if opts.key < 0 || opts.key > int(protocol.MaxRoutingKey) {
		err = fmt.Errorf("routing key %d out of range", opts.key)
		return
	}
	key := protocol.RoutingKey(opts.key)

	var payload []byte
	switch opts.msgType {
	case "broadcast":
		if opts.counter < 0 || opts.counter > 255 {
			err = fmt.Errorf("counter %d out of range", opts.counter)
			return
		}
		payload, err = protocol.NewBroadcast(key, []byte(opts.body))
		if err != nil {
			return
		}
		err = protocol.EncodeCounter(payload, uint8(opts.counter))
	case "request":
		payload, err = protocol.NewMetadata(protocol.SubtypeMetadataRequest, key, opts.timestamp, []byte(opts.body))
	case "response":
		payload, err = protocol.NewMetadata(protocol.SubtypeMetadataResponse, key, opts.timestamp, []byte(opts.body))
	default:
		err = fmt.Errorf("unknown message type '%s'", opts.msgType)
	}
	if err != nil {
		return
	}

	srcIP, srcPort, err := splitEndpoint(opts.src)
	if err != nil {
		return
	}
	dstIP, dstPort, err := splitEndpoint(opts.dst)
	if err != nil {
		return
	}
	srcMAC, err := net.ParseMAC(opts.srcMAC)
	if err != nil {
		err = fmt.Errorf("invalid source mac: %w", err)
		return
	}
	dstMAC, err := net.ParseMAC(opts.dstMAC)
	if err != nil {
		err = fmt.Errorf("invalid destination mac: %w", err)
		return
	}

	frame, err = packet.Build(packet.FrameSpec{
		SrcMAC:  srcMAC,
		DstMAC:  dstMAC,
		SrcIP:   srcIP,
		DstIP:   dstIP,
		SrcPort: srcPort,
		DstPort: dstPort,
		Payload: payload,
	})
	return
}

// Replaces the source address and MAC with those of the egress interface for the destination
func resolveSource(opts *craftOptions) (err error) {
	dstIP, _, err := splitEndpoint(opts.dst)
	if err != nil {
		return
	}
	_, srcPort, err := splitEndpoint(opts.src)
	if err != nil {
		return
	}

	iface, srcIP, err := network.InterfaceForDestination(dstIP)
	if err != nil {
		return
	}
	if srcIP == nil {
		srcIP, err = network.InterfaceIPv4(iface)
		if err != nil {
			return
		}
	}

	opts.src = net.JoinHostPort(srcIP.String(), strconv.Itoa(int(srcPort)))
	if len(iface.HardwareAddr) == 6 {
		opts.srcMAC = iface.HardwareAddr.String()
	}
	return
}

func splitEndpoint(endpoint string) (ip net.IP, port uint16, err error) {
	host, portText, err := net.SplitHostPort(endpoint)
	if err != nil {
		err = fmt.Errorf("invalid endpoint '%s': %w", endpoint, err)
		return
	}
	ip = net.ParseIP(host).To4()
	if ip == nil {
		err = fmt.Errorf("endpoint '%s' is not an IPv4 address", endpoint)
		return
	}
	value, err := strconv.ParseUint(portText, 10, 16)
	if err != nil {
		err = fmt.Errorf("invalid port in '%s': %w", endpoint, err)
		return
	}
	port = uint16(value)
	return
}
