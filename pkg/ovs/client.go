package ovs

import (
	"fmt"
	"net"
	"os/exec"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/vishvananda/netlink"

	"github.com/ovs-container-lab/vport-intents/pkg/vport"
)

// Client provides an interface to Open vSwitch
type Client struct {
	logger *logrus.Logger
	vsctl  func(args ...string) (string, error)
	link   func(name string) (net.HardwareAddr, error)
}

// NewClient creates a new OVS client
func NewClient() (*Client, error) {
	logger := logrus.New()
	logger.SetLevel(logrus.GetLevel())

	return &Client{
		logger: logger,
		vsctl:  runVsctl,
		link:   linkHWAddr,
	}, nil
}

func runVsctl(args ...string) (string, error) {
	cmd := exec.Command("ovs-vsctl", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("ovs-vsctl %s: %w (output: %s)", strings.Join(args, " "), err, strings.TrimSpace(string(output)))
	}
	return strings.TrimSpace(string(output)), nil
}

func linkHWAddr(name string) (net.HardwareAddr, error) {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return nil, err
	}
	return link.Attrs().HardwareAddr, nil
}

// Ping verifies that OVS is accessible
func (c *Client) Ping() error {
	output, err := c.vsctl("--version")
	if err != nil {
		return fmt.Errorf("ovs-vsctl not accessible: %w", err)
	}
	c.logger.Debugf("OVS version: %s", output)
	return nil
}

// ListBridges returns a list of all OVS bridges
func (c *Client) ListBridges() ([]string, error) {
	output, err := c.vsctl("list-br")
	if err != nil {
		return nil, fmt.Errorf("failed to list bridges: %w", err)
	}

	bridges := []string{}
	for _, line := range strings.Split(output, "\n") {
		bridge := strings.TrimSpace(line)
		if bridge != "" {
			bridges = append(bridges, bridge)
		}
	}

	return bridges, nil
}

// HasBridge reports whether the bridge exists
func (c *Client) HasBridge(bridge string) (bool, error) {
	bridges, err := c.ListBridges()
	if err != nil {
		return false, err
	}
	return lo.Contains(bridges, bridge), nil
}

// EnsureBridge ensures that an OVS bridge exists
func (c *Client) EnsureBridge(bridge string) error {
	if _, err := c.vsctl("br-exists", bridge); err == nil {
		c.logger.Debugf("Bridge %s already exists", bridge)
		return nil
	}

	c.logger.Infof("Creating OVS bridge %s", bridge)
	if _, err := c.vsctl("add-br", bridge); err != nil {
		return fmt.Errorf("failed to create bridge %s: %w", bridge, err)
	}

	// Flows are owned by the intent server
	if _, err := c.vsctl("set", "bridge", bridge, "fail-mode=secure"); err != nil {
		c.logger.Warnf("Failed to set bridge %s to secure mode: %v", bridge, err)
	}

	return nil
}

// AddPort adds a port to an OVS bridge, tagging the interface with externalIDs.
// It reports whether the port was created; a port that already exists is
// left untouched.
func (c *Client) AddPort(bridge, port string, externalIDs map[string]string) (bool, error) {
	args := []string{"add-port", bridge, port}
	for key, value := range externalIDs {
		args = append(args, "--", "set", "Interface", port, fmt.Sprintf("external_ids:%s=%s", key, value))
	}

	c.logger.Debugf("Adding port to OVS: ovs-vsctl %v", args)
	if _, err := c.vsctl(args...); err != nil {
		if strings.Contains(err.Error(), "already exists") {
			c.logger.Warnf("Port %s already exists on bridge %s", port, bridge)
			return false, nil
		}
		return false, fmt.Errorf("failed to add port %s to bridge %s: %w", port, bridge, err)
	}

	c.logger.Infof("Added port %s to bridge %s", port, bridge)
	return true, nil
}

// DeletePort removes a port from an OVS bridge
func (c *Client) DeletePort(bridge, port string) error {
	if _, err := c.vsctl("--if-exists", "del-port", bridge, port); err != nil {
		return fmt.Errorf("failed to delete port %s from bridge %s: %w", port, bridge, err)
	}

	c.logger.Infof("Deleted port %s from bridge %s", port, bridge)
	return nil
}

// DatapathID returns the datapath id of the bridge in colon notation
// (e.g. 00:00:aa:bb:cc:dd:ee:ff)
func (c *Client) DatapathID(bridge string) (string, error) {
	output, err := c.vsctl("get", "bridge", bridge, "datapath_id")
	if err != nil {
		return "", fmt.Errorf("failed to get datapath id of %s: %w", bridge, err)
	}
	return parseDatapathID(output)
}

// OFPort returns the OpenFlow port number assigned to the interface
func (c *Client) OFPort(iface string) (uint32, error) {
	output, err := c.vsctl("get", "interface", iface, "ofport")
	if err != nil {
		return 0, fmt.Errorf("failed to get ofport of %s: %w", iface, err)
	}
	return parseOFPort(output)
}

// HWAddr returns the hardware address of the interface. Interfaces OVS
// creates itself are not always visible to netlink, in that case the
// address is taken from the OVS database.
func (c *Client) HWAddr(iface string) (net.HardwareAddr, error) {
	if addr, err := c.link(iface); err == nil && len(addr) > 0 {
		return addr, nil
	} else if err != nil {
		c.logger.Debugf("Link %s not found via netlink: %v", iface, err)
	}

	output, err := c.vsctl("get", "interface", iface, "mac_in_use")
	if err != nil {
		return nil, fmt.Errorf("failed to get hardware address of %s: %w", iface, err)
	}
	return net.ParseMAC(strings.Trim(output, "\""))
}

// VirtualPort builds the virtual port terminating on iface
func (c *Client) VirtualPort(bridge, iface string, virtualPortID int) (*vport.Port, error) {
	dpid, err := c.DatapathID(bridge)
	if err != nil {
		return nil, err
	}
	ofport, err := c.OFPort(iface)
	if err != nil {
		return nil, err
	}
	hwaddr, err := c.HWAddr(iface)
	if err != nil {
		return nil, err
	}

	port := vport.NewPort(dpid, ofport, virtualPortID, hwaddr, iface)
	c.logger.Debugf("Resolved %s on %s to %s", iface, bridge, port)
	return port, nil
}

func parseDatapathID(output string) (string, error) {
	raw := strings.Trim(strings.TrimSpace(output), "\"")
	if len(raw) != 16 {
		return "", fmt.Errorf("unexpected datapath id %q", output)
	}
	if _, err := strconv.ParseUint(raw, 16, 64); err != nil {
		return "", fmt.Errorf("unexpected datapath id %q: %w", output, err)
	}

	octets := make([]string, 0, 8)
	for i := 0; i < len(raw); i += 2 {
		octets = append(octets, raw[i:i+2])
	}
	return strings.ToLower(strings.Join(octets, ":")), nil
}

func parseOFPort(output string) (uint32, error) {
	value := strings.TrimSpace(output)
	// [] means not assigned yet, -1 means the interface failed to attach
	if value == "[]" || value == "-1" {
		return 0, fmt.Errorf("ofport not assigned (%s)", value)
	}
	port, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("unexpected ofport %q: %w", output, err)
	}
	return uint32(port), nil
}
