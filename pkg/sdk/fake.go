package sdk

import (
	"bufio"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

var (
	paramRefRe = regexp.MustCompile(`^\(param-ref '([^\s)]+)\)$`)
	paramSetRe = regexp.MustCompile(`^\(param-set! '([^\s)]+) (.+)\)$`)
)

// Fake is an in-memory DLC pro command line for tests and development.
// Writing a "-set" parameter settles its "-act" counterpart immediately.
type Fake struct {
	mu       sync.Mutex
	params   map[string]string
	readOnly map[string]bool
	fail     string
	commands []string
	conns    []net.Conn
}

// NewFake returns a fake controller with a dual-laser parameter tree:
// emission on, current loops disabled and all set/act values zero.
func NewFake() *Fake {
	f := &Fake{
		params:   map[string]string{"emission": "#t"},
		readOnly: map[string]bool{"emission": true},
	}

	for i := 1; i <= Lasers; i++ {
		dl := fmt.Sprintf("laser%d:dl", i)
		f.params[dl+":cc:enabled"] = "#f"
		for _, loop := range []string{":cc:current", ":pc:voltage", ":tc:temp"} {
			f.params[dl+loop+"-set"] = "0"
			f.params[dl+loop+"-act"] = "0"
			f.readOnly[dl+loop+"-act"] = true
		}
	}

	return f
}

// Connect returns the client end of a new in-memory connection.
func (f *Fake) Connect() Transport {
	client, server := net.Pipe()

	f.mu.Lock()
	f.conns = append(f.conns, server)
	f.mu.Unlock()

	go f.serve(server)
	return client
}

// Disconnect drops every open connection, as if the controller went away.
func (f *Fake) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, c := range f.conns {
		c.Close()
	}
	f.conns = nil
}

// Param returns the raw value of a parameter.
func (f *Fake) Param(name string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, ok := f.params[name]
	return v, ok
}

// SetParam overwrites a parameter, including read-only ones.
func (f *Fake) SetParam(name, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.params[name] = value
}

// FailNext makes the next command reply with a device error carrying msg.
func (f *Fake) FailNext(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fail = msg
}

// Commands returns every command line received so far.
func (f *Fake) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.commands...)
}

func (f *Fake) serve(conn net.Conn) {
	defer conn.Close()

	if _, err := conn.Write([]byte("DeCoF Command Line\n" + prompt)); err != nil {
		return
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		reply := f.execute(strings.TrimSpace(scanner.Text()))
		if _, err := conn.Write([]byte(reply + "\n" + prompt)); err != nil {
			return
		}
	}
}

func (f *Fake) execute(cmd string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.commands = append(f.commands, cmd)

	if f.fail != "" {
		msg := f.fail
		f.fail = ""
		return "Error: -1 " + msg
	}

	if m := paramRefRe.FindStringSubmatch(cmd); m != nil {
		v, ok := f.params[m[1]]
		if !ok {
			return "Error: -9 unknown parameter"
		}
		return v
	}

	if m := paramSetRe.FindStringSubmatch(cmd); m != nil {
		name, value := m[1], m[2]
		old, ok := f.params[name]
		if !ok {
			return "Error: -9 unknown parameter"
		}
		if f.readOnly[name] {
			return "Error: -6 parameter is read-only"
		}
		if !sameKind(old, value) {
			return "Error: -3 type mismatch"
		}

		f.params[name] = value
		if base, ok := strings.CutSuffix(name, "-set"); ok {
			if _, ok := f.params[base+"-act"]; ok {
				f.params[base+"-act"] = value
			}
		}
		return "0"
	}

	return "Error: -2 syntax error"
}

func sameKind(old, value string) bool {
	if old == "#t" || old == "#f" {
		return value == "#t" || value == "#f"
	}
	_, err := strconv.ParseFloat(value, 64)
	return err == nil
}
