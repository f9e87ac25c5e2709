// Package main is a command-line caller for services on the bus: invoke a
// method with typed arguments or listen for signals.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/morezero/comms-client/pkg/call"
	"github.com/morezero/comms-client/pkg/comms"
	"github.com/morezero/comms-client/pkg/wire"
)

const usage = `Usage: comms-call <command>
       comms-call call <service> <method> [input...] [-- output...]
       comms-call listen <service> <signal> [signal...]

Commands:
  call     Invoke a method synchronously and print the reply.
  listen   Print signals from a service as they arrive (Ctrl+C to stop).

Inputs are tag:value pairs, e.g. s:hello i:-3 u:7 y:255 n:-2 t:9 b:true
d:1.5 o:/obj/path v:boxed. Array inputs take comma-separated elements
(as:a,b,c ao:/a,/b) and dicts take k=v pairs (a{ss}:k=v,k2=v2).

Outputs after -- are the expected reply element tags; each decoded element
is printed on its own line. Use * for elements of unknown type.

Environment: COMMS_URL (required), SERVICE_NAME, COMMS_MIN_SERVER_VERSION,
COMMS_CONNECT_TIMEOUT, LOG_LEVEL. See README for the full list.
`

func main() {
	args := os.Args[1:]
	cmd := ""
	if len(args) > 0 && args[0] != "" {
		cmd = args[0]
	}

	switch cmd {
	case "call":
		if len(args) < 3 {
			log.Fatalf("comms-call call: require <service> <method>")
		}
		if err := runCall(args[1], args[2], args[3:]); err != nil {
			log.Fatalf("comms-call call: %v", err)
		}
	case "listen":
		if len(args) < 3 {
			log.Fatalf("comms-call listen: require <service> <signal>")
		}
		if err := runListen(args[1], args[2:]); err != nil {
			log.Fatalf("comms-call listen: %v", err)
		}
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q.\n%s", cmd, usage)
		os.Exit(1)
	}
}

func runCall(service, method string, args []string) error {
	inputs := args
	var outputs []string
	for i, a := range args {
		if a == "--" {
			inputs = args[:i]
			outputs = args[i+1:]
			break
		}
	}

	nc, err := comms.ConnectFromEnv()
	if err != nil {
		return err
	}
	defer nc.Close()

	cl := call.NewClient(comms.NewDialer(nc))
	defer cl.Close()

	c := cl.NewCallTo(service, method)
	defer c.Close()

	for i, arg := range inputs {
		if err := addInput(c, i, arg); err != nil {
			return err
		}
	}
	printers := make([]func() string, 0, len(outputs))
	for i, tag := range outputs {
		p, err := addOutput(c, i, tag)
		if err != nil {
			return err
		}
		printers = append(printers, p)
	}

	if !c.Invoke() {
		return fmt.Errorf("%s:%s failed", service, method)
	}
	for _, p := range printers {
		fmt.Println(p())
	}
	return nil
}

func runListen(service string, signals []string) error {
	nc, err := comms.ConnectFromEnv()
	if err != nil {
		return err
	}
	defer nc.Close()

	cl := call.NewClient(comms.NewDialer(nc))
	defer cl.Close()

	for _, sig := range signals {
		if !cl.OnSignalFrom(service, sig, func(sender, name string) {
			fmt.Printf("%s %s %s\n", time.Now().Format(time.RFC3339), sender, name)
		}) {
			return fmt.Errorf("cannot reach %s", service)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cl.StopSignals()
	}()

	fmt.Fprintf(os.Stderr, "listening for %s from %s\n", strings.Join(signals, ", "), service)
	for cl.ProcessSignals(time.Second) {
	}
	return nil
}

// addInput declares one IN field on c from a tag:value argument.
func addInput(c *call.Call, idx int, arg string) error {
	tag, val, found := strings.Cut(arg, ":")
	if !found {
		return fmt.Errorf("input %q: want tag:value", arg)
	}
	name := fmt.Sprintf("in%d", idx)

	switch tag {
	case wire.TagString:
		call.InString(c, name).Set(val)
	case wire.TagInt32:
		i, err := strconv.ParseInt(val, 10, 32)
		if err != nil {
			return fmt.Errorf("input %q: %w", arg, err)
		}
		call.InInt32(c, name).Set(int32(i))
	case wire.TagUint32:
		u, err := strconv.ParseUint(val, 10, 32)
		if err != nil {
			return fmt.Errorf("input %q: %w", arg, err)
		}
		call.InUint32(c, name).Set(uint32(u))
	case wire.TagByte:
		u, err := strconv.ParseUint(val, 10, 8)
		if err != nil {
			return fmt.Errorf("input %q: %w", arg, err)
		}
		call.InByte(c, name).Set(byte(u))
	case wire.TagInt16:
		i, err := strconv.ParseInt(val, 10, 16)
		if err != nil {
			return fmt.Errorf("input %q: %w", arg, err)
		}
		call.InInt16(c, name).Set(int16(i))
	case wire.TagUint64:
		u, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return fmt.Errorf("input %q: %w", arg, err)
		}
		call.InUint64(c, name).Set(u)
	case wire.TagBool:
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("input %q: %w", arg, err)
		}
		call.InBool(c, name).Set(b)
	case wire.TagDouble:
		d, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("input %q: %w", arg, err)
		}
		call.InDouble(c, name).Set(d)
	case wire.TagObjectPath:
		call.InPath(c, name).Set(wire.ObjectPath(val))
	case wire.TagVariant:
		call.InVariant(c, name).Set(val)
	case wire.TagStringArray:
		call.InStrings(c, name).Set(splitList(val))
	case wire.TagPathArray:
		elems := splitList(val)
		paths := make([]wire.ObjectPath, len(elems))
		for i, e := range elems {
			paths[i] = wire.ObjectPath(e)
		}
		call.InPaths(c, name).Set(paths)
	case wire.TagDict:
		dict := make(map[string]string)
		for _, pair := range splitList(val) {
			k, v, ok := strings.Cut(pair, "=")
			if !ok {
				return fmt.Errorf("input %q: dict entry %q: want k=v", arg, pair)
			}
			dict[k] = v
		}
		call.InDict(c, name).Set(dict)
	default:
		return fmt.Errorf("input %q: unsupported tag %q", arg, tag)
	}
	return nil
}

func splitList(val string) []string {
	if val == "" {
		return nil
	}
	return strings.Split(val, ",")
}

// addOutput declares one OUT field on c for the given tag and returns a
// printer for its decoded value.
func addOutput(c *call.Call, idx int, tag string) (func() string, error) {
	name := fmt.Sprintf("out%d", idx)

	switch tag {
	case wire.TagString:
		p := call.OutString(c, name)
		return func() string { return p.Value() }, nil
	case wire.TagInt32:
		p := call.OutInt32(c, name)
		return func() string { return strconv.FormatInt(int64(p.Value()), 10) }, nil
	case wire.TagUint32:
		p := call.OutUint32(c, name)
		return func() string { return strconv.FormatUint(uint64(p.Value()), 10) }, nil
	case wire.TagByte:
		p := call.OutByte(c, name)
		return func() string { return strconv.FormatUint(uint64(p.Value()), 10) }, nil
	case wire.TagInt16:
		p := call.OutInt16(c, name)
		return func() string { return strconv.FormatInt(int64(p.Value()), 10) }, nil
	case wire.TagUint64:
		p := call.OutUint64(c, name)
		return func() string { return strconv.FormatUint(p.Value(), 10) }, nil
	case wire.TagBool:
		p := call.OutBool(c, name)
		return func() string { return strconv.FormatBool(p.Value()) }, nil
	case wire.TagDouble:
		p := call.OutDouble(c, name)
		return func() string { return strconv.FormatFloat(p.Value(), 'g', -1, 64) }, nil
	case wire.TagObjectPath:
		p := call.OutPath(c, name)
		return func() string { return string(p.Value()) }, nil
	case wire.TagVariant:
		p := call.OutVariant(c, name)
		return func() string { return p.Value() }, nil
	case wire.TagStringArray:
		p := call.OutStrings(c, name)
		return func() string { return strings.Join(p.Value(), ",") }, nil
	case wire.TagPathArray:
		p := call.OutPaths(c, name)
		return func() string {
			elems := make([]string, len(p.Value()))
			for i, e := range p.Value() {
				elems[i] = string(e)
			}
			return strings.Join(elems, ",")
		}, nil
	case wire.TagDict:
		p := call.OutDict(c, name)
		return func() string { return formatDict(p.Value()) }, nil
	case wire.TagVarDict:
		p := call.OutVarDict(c, name)
		return func() string { return formatDict(p.Value()) }, nil
	case wire.TagTupleArray:
		p := call.OutTuples(c, name)
		return func() string {
			rows := make([]string, len(p.Value()))
			for i, row := range p.Value() {
				rows[i] = wire.PrintTuple(row)
			}
			return strings.Join(rows, "\n")
		}, nil
	case wire.TagAny:
		p := call.OutAny(c, name)
		return func() string { return p.Value() }, nil
	default:
		return nil, fmt.Errorf("output %d: unsupported tag %q", idx, tag)
	}
}

func formatDict(m map[string]string) string {
	pairs := make([]string, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, k+"="+v)
	}
	return strings.Join(pairs, ",")
}
