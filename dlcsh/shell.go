package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/itohio/dlcpro/pkg/dlcpro"
)

// caller invokes a remote method by name.
type caller interface {
	Call(ctx context.Context, name string, args map[string]any) (*structpb.Value, error)
}

// quantity groups the setter and readouts of one analog channel control.
type quantity struct {
	name     string
	unit     string
	set      func(dlcpro.Channel, float64) error
	setpoint func(dlcpro.Channel) (*float64, error)
	actual   func(dlcpro.Channel) (*float64, error)
}

// Shell is the interactive command interpreter.
type Shell struct {
	dev dlcpro.Device
	raw caller
	out io.Writer

	quantities map[string]quantity
}

// NewShell creates a shell driving dev. raw may be nil, which disables "call".
func NewShell(dev dlcpro.Device, raw caller, out io.Writer) *Shell {
	return &Shell{
		dev: dev,
		raw: raw,
		out: out,
		quantities: map[string]quantity{
			"current": {"current", "mA", dev.SetCurrent, dev.GetCurrentSetpoint, dev.GetCurrentActual},
			"voltage": {"voltage", "V", dev.SetVoltage, dev.GetVoltageSetpoint, dev.GetVoltageActual},
			"temp":    {"temperature", "°C", dev.SetTemperature, dev.GetTemperatureSetpoint, dev.GetTemperatureActual},
		},
	}
}

// Run reads commands from rl until quit, EOF or ctx is done.
func (s *Shell) Run(ctx context.Context, rl *readline.Instance) {
	defer rl.Close()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			return
		}

		if s.Exec(line) {
			return
		}
	}
}

// Exec runs a single command line. It returns true when the shell should exit.
func (s *Shell) Exec(line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return false
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		s.printHelp()

	case "ping":
		if s.dev.Ping() {
			fmt.Fprintln(s.out, "pong")
		} else {
			fmt.Fprintln(s.out, "no answer")
		}

	case "emission", "e":
		on, err := s.dev.GetEmission()
		if err != nil {
			s.printError(err)
			return false
		}
		fmt.Fprintf(s.out, "emission: %s\n", onOff(on))

	case "on", "off":
		s.cmdSwitch(cmd == "on", args)

	case "current", "voltage", "temp":
		s.cmdQuantity(s.quantities[cmd], args)

	case "status", "s":
		s.cmdStatus(args)

	case "call":
		s.cmdCall(input)

	case "quit", "exit", "q":
		fmt.Fprintln(s.out, "Exiting...")
		return true

	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
DLC pro Commands:
  Channels:
    on <ch>              - Enable the current loop of a channel
    off <ch>             - Disable the current loop of a channel
    current <ch> [mA]    - Show or set the diode current
    voltage <ch> [V]     - Show or set the piezo voltage
    temp <ch> [°C]       - Show or set the temperature
    status [ch]          - Show all readouts (of one or every channel)

  Device:
    emission             - Show the emission state
    ping                 - Check that the controller answers
    call <method> [json] - Invoke a method with raw JSON arguments

  General:
    help                 - Show this help
    quit                 - Exit`)
}

func (s *Shell) cmdSwitch(on bool, args []string) {
	ch, ok := s.channelArg("on|off <ch>", args)
	if !ok {
		return
	}
	if err := s.dev.SetCurrentEnabled(ch, on); err != nil {
		s.printError(err)
		return
	}
	fmt.Fprintf(s.out, "channel %d: current loop %s\n", ch, onOff(on))
}

func (s *Shell) cmdQuantity(q quantity, args []string) {
	ch, ok := s.channelArg(q.name+" <ch> [value]", args)
	if !ok {
		return
	}

	if len(args) > 1 {
		v, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			fmt.Fprintf(s.out, "Invalid value: %s\n", args[1])
			return
		}
		if err := q.set(ch, v); err != nil {
			s.printError(err)
			return
		}
	}

	s.printQuantity(ch, q)
}

func (s *Shell) cmdStatus(args []string) {
	channels := make([]dlcpro.Channel, 0, dlcpro.NumChannels)
	if len(args) > 0 {
		ch, ok := s.channelArg("status [ch]", args)
		if !ok {
			return
		}
		channels = append(channels, ch)
	} else {
		for i := 1; i <= dlcpro.NumChannels; i++ {
			channels = append(channels, dlcpro.Channel(i))
		}
	}

	if on, err := s.dev.GetEmission(); err != nil {
		s.printError(err)
	} else {
		fmt.Fprintf(s.out, "emission: %s\n", onOff(on))
	}

	for _, ch := range channels {
		on, err := s.dev.GetCurrentEnabled(ch)
		if err != nil {
			s.printError(err)
			continue
		}
		fmt.Fprintf(s.out, "channel %d: current loop %s\n", ch, onOff(on))
		for _, name := range []string{"current", "voltage", "temp"} {
			s.printQuantity(ch, s.quantities[name])
		}
	}
}

// cmdCall takes the raw input line since the JSON arguments may contain spaces.
func (s *Shell) cmdCall(input string) {
	if s.raw == nil {
		fmt.Fprintln(s.out, "call is not available")
		return
	}

	rest := strings.TrimSpace(strings.TrimPrefix(input, strings.Fields(input)[0]))
	if rest == "" {
		fmt.Fprintln(s.out, "Usage: call <method> [json]")
		fmt.Fprintln(s.out, `  Example: call SetChannelCurrent {"channel": 1, "value": 120}`)
		return
	}
	method, body, _ := strings.Cut(rest, " ")

	var args map[string]any
	if body = strings.TrimSpace(body); body != "" {
		st := new(structpb.Struct)
		if err := protojson.Unmarshal([]byte(body), st); err != nil {
			fmt.Fprintf(s.out, "Invalid arguments: %v\n", err)
			return
		}
		args = st.AsMap()
	}

	v, err := s.raw.Call(context.Background(), method, args)
	if err != nil {
		s.printError(err)
		return
	}
	out, err := protojson.Marshal(v)
	if err != nil {
		s.printError(err)
		return
	}
	fmt.Fprintln(s.out, string(out))
}

func (s *Shell) channelArg(usage string, args []string) (dlcpro.Channel, bool) {
	if len(args) < 1 {
		fmt.Fprintf(s.out, "Usage: %s\n", usage)
		return 0, false
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintf(s.out, "Invalid channel: %s\n", args[0])
		return 0, false
	}
	return dlcpro.Channel(n), true
}

func (s *Shell) printQuantity(ch dlcpro.Channel, q quantity) {
	set, err := q.setpoint(ch)
	if err != nil {
		s.printError(err)
		return
	}
	act, err := q.actual(ch)
	if err != nil {
		s.printError(err)
		return
	}
	fmt.Fprintf(s.out, "channel %d: %s set %s, actual %s\n", ch, q.name, formatOptional(set, q.unit), formatOptional(act, q.unit))
}

func (s *Shell) printError(err error) {
	fmt.Fprintf(s.out, "Error: %v\n", err)
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func formatOptional(v *float64, unit string) string {
	if v == nil {
		return "unset"
	}
	return strconv.FormatFloat(*v, 'g', -1, 64) + " " + unit
}
