package ovs

import (
	"errors"
	"net"
	"os/exec"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPing(t *testing.T) {
	// Check if OVS is installed
	if _, err := exec.LookPath("ovs-vsctl"); err != nil {
		t.Skip("ovs-vsctl not found, skipping OVS tests")
	}

	client, err := NewClient()
	assert.NoError(t, err)

	err = client.Ping()
	// This will only pass if OVS is actually installed
	if err != nil {
		t.Skipf("OVS not accessible: %v", err)
	}
}

func stubClient(outputs map[string]string, links map[string]net.HardwareAddr) *Client {
	return &Client{
		logger: logrus.New(),
		vsctl: func(args ...string) (string, error) {
			out, ok := outputs[strings.Join(args, " ")]
			if !ok {
				return "", errors.New("no row")
			}
			return out, nil
		},
		link: func(name string) (net.HardwareAddr, error) {
			addr, ok := links[name]
			if !ok {
				return nil, errors.New("link not found")
			}
			return addr, nil
		},
	}
}

func TestParseDatapathID(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "quoted", input: `"0000aabbccddeeff"`, expected: "00:00:aa:bb:cc:dd:ee:ff"},
		{name: "upper case", input: "0000AABBCCDDEEFF\n", expected: "00:00:aa:bb:cc:dd:ee:ff"},
		{name: "short", input: `"aabb"`, wantErr: true},
		{name: "not hex", input: `"zz00aabbccddeeff"`, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dpid, err := parseDatapathID(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, dpid)
		})
	}
}

func TestParseOFPort(t *testing.T) {
	port, err := parseOFPort("5\n")
	require.NoError(t, err)
	assert.Equal(t, uint32(5), port)

	for _, input := range []string{"[]", "-1", "eth0"} {
		_, err := parseOFPort(input)
		assert.Error(t, err, input)
	}
}

func TestVirtualPort(t *testing.T) {
	mac, _ := net.ParseMAC("02:42:ac:11:00:02")
	client := stubClient(map[string]string{
		"get bridge br-ovs datapath_id": `"0000020000000001"`,
		"get interface vnf0 ofport":     "7",
		"get interface vnf1 ofport":     "8",
		"get interface vnf1 mac_in_use": `"02:42:ac:11:00:03"`,
	}, map[string]net.HardwareAddr{"vnf0": mac})

	port, err := client.VirtualPort("br-ovs", "vnf0", 1)
	require.NoError(t, err)
	assert.Equal(t, "00:00:02:00:00:00:00:01", port.DPID())
	assert.Equal(t, uint32(7), port.OVSPortID())
	assert.Equal(t, 1, port.VirtualPortID())
	assert.Equal(t, mac, port.HWAddr())
	assert.Equal(t, "vnf0", port.Iface())

	port, err = client.VirtualPort("br-ovs", "vnf1", 2)
	require.NoError(t, err)
	assert.Equal(t, "02:42:ac:11:00:03", port.HWAddr().String())

	_, err = client.VirtualPort("br-ovs", "missing", 3)
	assert.Error(t, err)

	_, err = client.VirtualPort("br-missing", "vnf0", 1)
	assert.Error(t, err)
}

func TestAddPortAlreadyExists(t *testing.T) {
	client := &Client{
		logger: logrus.New(),
		vsctl: func(args ...string) (string, error) {
			return "", errors.New("ovs-vsctl: cannot create a port named vnf0 because a port named vnf0 already exists")
		},
	}

	created, err := client.AddPort("br-ovs", "vnf0", map[string]string{"lvnf": "02:00:00:00:00:01"})
	assert.NoError(t, err)
	assert.False(t, created)
	assert.Error(t, client.DeletePort("br-ovs", "vnf0"))
}

func TestListBridges(t *testing.T) {
	client := stubClient(map[string]string{"list-br": "br-int\nbr-ovs\n"}, nil)

	bridges, err := client.ListBridges()
	require.NoError(t, err)
	assert.Equal(t, []string{"br-int", "br-ovs"}, bridges)

	ok, err := client.HasBridge("br-ovs")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.HasBridge("br-missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAddPortCreated(t *testing.T) {
	var calls [][]string
	client := &Client{
		logger: logrus.New(),
		vsctl: func(args ...string) (string, error) {
			calls = append(calls, args)
			return "", nil
		},
	}

	created, err := client.AddPort("br-ovs", "vnf0", map[string]string{"lvnf": "02:00:00:00:00:01"})
	require.NoError(t, err)
	assert.True(t, created)
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"add-port", "br-ovs", "vnf0", "--", "set", "Interface", "vnf0", "external_ids:lvnf=02:00:00:00:00:01"}, calls[0])
}
