//go:build linux

package hal

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/vishvananda/netlink"

	"kumbara-device-go/internal/platform/logging"
)

const procWireless = "/proc/net/wireless"

// LinuxRadio hands association to NetworkManager and reads link state
// over netlink.
type LinuxRadio struct {
	iface    string
	logger   *logging.Logger
	wireless string
	command  func(ctx context.Context, name string, args ...string) *exec.Cmd

	mu     sync.Mutex
	target string
}

func NewRadio(iface string, logger *logging.Logger) (*LinuxRadio, error) {
	if iface == "" {
		return nil, fmt.Errorf("wifi interface is required")
	}
	return &LinuxRadio{
		iface:    iface,
		logger:   logger,
		wireless: procWireless,
		command:  exec.CommandContext,
	}, nil
}

// Join asks nmcli to connect and returns once the request is accepted.
// Connected only reports true for ssid from here on.
func (r *LinuxRadio) Join(ctx context.Context, ssid, password string) error {
	r.mu.Lock()
	r.target = ssid
	r.mu.Unlock()

	args := []string{"device", "wifi", "connect", ssid, "ifname", r.iface}
	if password != "" {
		args = append(args, "password", password)
	}
	cmd := r.command(ctx, "nmcli", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start nmcli: %w", err)
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			r.logger.WarnTag(logging.TagWiFi, "nmcli connect %s: %v %s", ssid, err, strings.TrimSpace(stderr.String()))
		}
	}()
	return nil
}

// Connected reports true once the interface is up, holds an IPv4 address
// and is associated with the network last passed to Join.
func (r *LinuxRadio) Connected(ctx context.Context) (bool, error) {
	link, err := netlink.LinkByName(r.iface)
	if err != nil {
		return false, fmt.Errorf("lookup link %s: %w", r.iface, err)
	}
	if link.Attrs().OperState != netlink.OperUp {
		return false, nil
	}
	addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
	if err != nil {
		return false, fmt.Errorf("list addresses on %s: %w", r.iface, err)
	}
	if len(addrs) == 0 {
		return false, nil
	}
	return r.associated(ctx)
}

// associated compares the active SSID on the interface with the join target.
func (r *LinuxRadio) associated(ctx context.Context) (bool, error) {
	r.mu.Lock()
	target := r.target
	r.mu.Unlock()
	if target == "" {
		return true, nil
	}

	cmd := r.command(ctx, "nmcli", "-t", "-f", "ACTIVE,SSID", "device", "wifi", "list", "ifname", r.iface, "--rescan", "no")
	out, err := cmd.Output()
	if err != nil {
		return false, fmt.Errorf("nmcli wifi list: %w", err)
	}
	active, ok := parseActiveSSID(bytes.NewReader(out))
	if !ok || active != target {
		r.logger.DebugTag(logging.TagWiFi, "waiting for %q, associated with %q", target, active)
		return false, nil
	}
	return true, nil
}

// parseActiveSSID reads terse nmcli ACTIVE,SSID rows. Colons inside an SSID
// are escaped as "\:".
func parseActiveSSID(rd io.Reader) (string, bool) {
	sc := bufio.NewScanner(rd)
	for sc.Scan() {
		active, ssid, found := strings.Cut(sc.Text(), ":")
		if !found || active != "yes" {
			continue
		}
		return strings.NewReplacer(`\:`, ":", `\\`, `\`).Replace(ssid), true
	}
	return "", false
}

// RSSI reads the signal level column of /proc/net/wireless.
func (r *LinuxRadio) RSSI(context.Context) (int, error) {
	f, err := os.Open(r.wireless)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return parseWireless(f, r.iface)
}

func parseWireless(r io.Reader, iface string) (int, error) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 || strings.TrimSuffix(fields[0], ":") != iface {
			continue
		}
		level, err := strconv.ParseFloat(strings.TrimSuffix(fields[3], "."), 64)
		if err != nil {
			return 0, fmt.Errorf("parse signal level %q: %w", fields[3], err)
		}
		return int(level), nil
	}
	if err := sc.Err(); err != nil {
		return 0, err
	}
	return 0, ErrNotAssociated
}
