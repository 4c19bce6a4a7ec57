package netwatch

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"
)

// Executor runs an external command and returns its combined output.
type Executor interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

type commandExecutor struct{}

func (commandExecutor) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	return cmd.CombinedOutput()
}

// Network is one scanned access point.
type Network struct {
	SSID     string
	Signal   int
	Security string
	Active   bool
}

// WiFi drives NetworkManager through nmcli.
type WiFi struct {
	binary string
	exec   Executor
}

// NewWiFi returns a client for binary (default "nmcli"). A nil executor
// runs real commands.
func NewWiFi(binary string, executor Executor) *WiFi {
	if strings.TrimSpace(binary) == "" {
		binary = "nmcli"
	}
	if executor == nil {
		executor = commandExecutor{}
	}
	return &WiFi{binary: binary, exec: executor}
}

// Scan lists visible networks, strongest first, one entry per SSID.
func (w *WiFi) Scan(ctx context.Context) ([]Network, error) {
	out, err := w.exec.Output(ctx, w.binary, "-t", "-f", "ACTIVE,SSID,SIGNAL,SECURITY", "device", "wifi", "list", "--rescan", "yes")
	if err != nil {
		return nil, commandError("scan", out, err)
	}
	return parseScan(out), nil
}

// Connect joins ssid. An empty password connects to an open network.
func (w *WiFi) Connect(ctx context.Context, ssid, password string) error {
	ssid = strings.TrimSpace(ssid)
	if ssid == "" {
		return errors.New("ssid is required")
	}
	args := []string{"device", "wifi", "connect", ssid}
	if password != "" {
		args = append(args, "password", password)
	}
	out, err := w.exec.Output(ctx, w.binary, args...)
	if err != nil {
		return commandError("connect "+ssid, out, err)
	}
	return nil
}

func commandError(op string, out []byte, err error) error {
	msg := strings.TrimSpace(string(out))
	if msg == "" {
		return fmt.Errorf("nmcli %s: %w", op, err)
	}
	return fmt.Errorf("nmcli %s: %s: %w", op, msg, err)
}

// parseScan reads nmcli terse output, where ':' in values is escaped as '\:'.
func parseScan(out []byte) []Network {
	best := make(map[string]Network)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := splitTerse(scanner.Text())
		if len(fields) < 4 {
			continue
		}
		ssid := strings.TrimSpace(fields[1])
		if ssid == "" {
			continue
		}
		signal, _ := strconv.Atoi(strings.TrimSpace(fields[2]))
		n := Network{
			SSID:     ssid,
			Signal:   signal,
			Security: strings.TrimSpace(fields[3]),
			Active:   strings.EqualFold(strings.TrimSpace(fields[0]), "yes"),
		}
		if prev, ok := best[ssid]; ok {
			n.Active = n.Active || prev.Active
			if prev.Signal >= n.Signal {
				prev.Active = n.Active
				n = prev
			}
		}
		best[ssid] = n
	}
	networks := make([]Network, 0, len(best))
	for _, n := range best {
		networks = append(networks, n)
	}
	sort.Slice(networks, func(i, j int) bool {
		if networks[i].Signal != networks[j].Signal {
			return networks[i].Signal > networks[j].Signal
		}
		return networks[i].SSID < networks[j].SSID
	})
	return networks
}

func splitTerse(line string) []string {
	var fields []string
	var cur strings.Builder
	escaped := false
	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == ':':
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	return append(fields, cur.String())
}
