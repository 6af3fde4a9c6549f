package types

import (
	"context"
	"net"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovs-container-lab/vport-intents/pkg/intent/intenttest"
	"github.com/ovs-container-lab/vport-intents/pkg/vport"
)

func mac(s string) net.HardwareAddr {
	addr, err := net.ParseMAC(s)
	if err != nil {
		panic(err)
	}
	return addr
}

func testRadios() (*Radio, *Radio) {
	r1 := &Radio{Addr: mac("00:0d:b9:00:00:01"), Name: "wtp1", Port: vport.SwitchPort{DPID: "00:00:00:00:00:00:00:0a", PortID: 1}}
	r2 := &Radio{Addr: mac("00:0d:b9:00:00:02"), Name: "wtp2", Port: vport.SwitchPort{DPID: "00:00:00:00:00:00:00:0b", PortID: 2}}
	return r1, r2
}

func TestBlockSetOrder(t *testing.T) {
	r1, r2 := testRadios()
	b1 := &ResourceBlock{Radio: r2, Channel: 36, Band: "HT20"}
	b2 := &ResourceBlock{Radio: r1, Channel: 1, Band: "L20"}
	b3 := &ResourceBlock{Radio: r1, Channel: 6, Band: "L20"}

	var set BlockSet
	assert.True(t, set.Add(b1))
	assert.True(t, set.Add(b2))
	assert.True(t, set.Add(b3))
	assert.False(t, set.Add(&ResourceBlock{Radio: r2, Channel: 36, Band: "HT20"}))

	assert.Equal(t, []*ResourceBlock{b1, b2, b3}, set.Blocks())

	assert.True(t, set.Remove(b2))
	assert.False(t, set.Remove(b2))
	assert.Equal(t, []*ResourceBlock{b1, b3}, set.Blocks())
	assert.Equal(t, 2, set.Len())
}

func TestLVAPSwitchPorts(t *testing.T) {
	r1, r2 := testRadios()
	lvap := NewLVAP(mac("11:22:33:44:55:66"), mac("00:0d:b9:2f:56:64"), new(intenttest.Service))
	lvap.Downlink.Add(&ResourceBlock{Radio: r2, Channel: 36, Band: "HT20"})
	lvap.Downlink.Add(&ResourceBlock{Radio: r1, Channel: 1, Band: "L20"})
	lvap.Uplink.Add(&ResourceBlock{Radio: r1, Channel: 1, Band: "L20"})

	assert.Equal(t, []vport.SwitchPort{r2.Port, r1.Port}, lvap.DownlinkPorts())
	assert.Equal(t, []vport.SwitchPort{r1.Port}, lvap.UplinkPorts())
}

func TestLVAPPortsRedirect(t *testing.T) {
	ctx := context.Background()
	r1, _ := testRadios()
	svc := new(intenttest.Service).Accept()

	lvap := NewLVAP(mac("11:22:33:44:55:66"), mac("00:0d:b9:2f:56:64"), svc)
	lvap.Downlink.Add(&ResourceBlock{Radio: r1, Channel: 1, Band: "L20"})
	lvap.Uplink.Add(&ResourceBlock{Radio: r1, Channel: 1, Band: "L20"})

	next, err := lvap.AddPort(vport.NewPort(r1.Port.DPID, r1.Port.PortID, 0, lvap.Addr, "wlan0"))
	require.NoError(t, err)

	target := vport.NewPort("00:00:00:00:00:00:00:01", 5, 0, nil, "vnf0")
	require.NoError(t, next.Set(ctx, "tp_dst=80", target))
	assert.Len(t, svc.Submitted(), 2)

	got, err := lvap.Next(0)
	require.NoError(t, err)
	assert.Same(t, next, got)

	require.NoError(t, lvap.Destroy(ctx))
	assert.Len(t, svc.Withdrawn(), 2)
	assert.Empty(t, lvap.Ports())
}

func TestPortTable(t *testing.T) {
	lvnf := NewLVNF(mac("02:00:00:00:00:01"), "cpp-1", new(intenttest.Service))

	_, err := lvnf.AddPort(vport.NewPort("dp", 4, 1, nil, "eth1"))
	require.NoError(t, err)
	_, err = lvnf.AddPort(vport.NewPort("dp", 3, 0, nil, "eth0"))
	require.NoError(t, err)

	_, err = lvnf.AddPort(vport.NewPort("dp", 9, 1, nil, "eth9"))
	assert.ErrorIs(t, err, ErrPortExists)

	_, err = lvnf.AddPort(vport.NewPort("", 9, 2, nil, "eth9"))
	assert.ErrorIs(t, err, vport.ErrInvalidValue)

	ports := lvnf.Ports()
	require.Len(t, ports, 2)
	assert.Equal(t, 0, ports[0].VirtualPortID())
	assert.Equal(t, 1, ports[1].VirtualPortID())

	port, err := lvnf.Port(1)
	require.NoError(t, err)
	assert.Equal(t, "eth1", port.Iface())

	_, err = lvnf.Port(7)
	assert.ErrorIs(t, err, ErrPortNotFound)
	_, err = lvnf.Next(7)
	assert.ErrorIs(t, err, ErrPortNotFound)

	require.NoError(t, lvnf.DetachPort(context.Background(), 1))
	require.NoError(t, lvnf.DetachPort(context.Background(), 1))
	assert.Len(t, lvnf.Ports(), 1)
}

func TestTenant(t *testing.T) {
	ctx := context.Background()
	svc := new(intenttest.Service)
	tenant := NewTenant(uuid.New(), "demo")

	lvap := NewLVAP(mac("11:22:33:44:55:66"), nil, svc)
	lvnf := NewLVNF(mac("02:00:00:00:00:01"), "cpp-1", svc)
	tenant.AddLVAP(lvap)
	tenant.AddLVNF(lvnf)
	tenant.AddLVAP(NewLVAP(mac("00:00:00:00:00:01"), nil, svc))

	got, err := tenant.LVAP(mac("11:22:33:44:55:66"))
	require.NoError(t, err)
	assert.Same(t, lvap, got)

	lvaps := tenant.LVAPs()
	require.Len(t, lvaps, 2)
	assert.Equal(t, "00:00:00:00:00:01", lvaps[0].Addr.String())

	_, err = tenant.LVNF(mac("02:00:00:00:00:02"))
	assert.ErrorIs(t, err, ErrEntityNotFound)

	require.NoError(t, tenant.RemoveLVAP(ctx, lvap.Addr))
	require.NoError(t, tenant.RemoveLVAP(ctx, lvap.Addr))
	_, err = tenant.LVAP(lvap.Addr)
	assert.ErrorIs(t, err, ErrEntityNotFound)

	require.NoError(t, tenant.RemoveLVNF(ctx, lvnf.Addr))
	assert.Empty(t, tenant.LVNFs())
}

func TestBlockSetWithoutRadio(t *testing.T) {
	r1, _ := testRadios()
	orphan := &ResourceBlock{Channel: 36, Band: "HT20"}

	var set BlockSet
	assert.NotPanics(t, func() {
		assert.False(t, set.Add(orphan))
		assert.False(t, set.Add(nil))
		assert.False(t, set.Remove(orphan))
		assert.False(t, set.Remove(nil))
	})
	assert.Equal(t, "<no radio>/36/HT20", orphan.String())

	assert.True(t, set.Add(&ResourceBlock{Radio: r1, Channel: 36, Band: "HT20"}))
	assert.False(t, set.Remove(orphan))
	assert.Equal(t, 1, set.Len())
}
