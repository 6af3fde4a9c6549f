package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTopology = `
tenants:
  - id: 52313ecb-9d00-4b7d-b873-b55d3d9ada26
    name: emp
    radios:
      - addr: "00:0d:b9:2f:56:10"
        name: wtp1
        dpid: "00:00:00:00:00:00:00:01"
        port: 3
    lvaps:
      - addr: "11:22:33:44:55:66"
        encap: "00:0d:b9:2f:56:64"
        ssid: lab
        downlink:
          - {radio: "00:0d:b9:2f:56:10", channel: 36, band: HT20}
        uplink:
          - {radio: "00:0d:b9:2f:56:10", channel: 36, band: HT20}
    lvnfs:
      - addr: "aa:bb:cc:dd:ee:ff"
        cpp: "00:00:00:00:00:00:00:02"
        name: dupes
        ports:
          - {id: 0, iface: vnf0}
          - {id: 1, iface: vnf1, attach: true}
    links:
      - {lvap: "11:22:33:44:55:66", port: 0, match: "dl_type=2048", lvnf: "aa:bb:cc:dd:ee:ff", lvnf_port: 0}
`

func TestDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "/data", cfg.DataDir)
	assert.Equal(t, BackendREST, cfg.IntentBackend)
	assert.Equal(t, "http://127.0.0.1:8080", cfg.IntentURL)
	assert.Equal(t, 5*time.Second, cfg.IntentTimeout)
	assert.Equal(t, "br-ovs", cfg.Bridge)
	assert.False(t, cfg.Debug)
}

func TestLoadOverrides(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set(KeyIntentBackend, BackendRedis)
	v.Set(KeyRedisAddr, "redis:6379")
	v.Set(KeyRedisDB, 2)
	v.Set(KeyIntentTimeout, "2s")

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, BackendRedis, cfg.IntentBackend)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, 2*time.Second, cfg.IntentTimeout)
}

func TestUnknownBackend(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set(KeyIntentBackend, "carrier-pigeon")

	_, err := Load(v)
	assert.Error(t, err)
}

func TestLoadTopology(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topology.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleTopology), 0644))

	topo, err := LoadTopology(path)
	require.NoError(t, err)
	require.Len(t, topo.Tenants, 1)

	tenant := topo.Tenants[0]
	assert.Equal(t, "emp", tenant.Name)
	require.Len(t, tenant.LVAPs, 1)
	assert.Len(t, tenant.LVAPs[0].Downlink, 1)
	assert.Equal(t, 36, tenant.LVAPs[0].Downlink[0].Channel)
	require.Len(t, tenant.LVNFs, 1)
	assert.True(t, tenant.LVNFs[0].Ports[1].Attach)
	require.Len(t, tenant.Links, 1)
	assert.Equal(t, "dl_type=2048", tenant.Links[0].Match)
}

func TestLoadTopologyMissingFile(t *testing.T) {
	_, err := LoadTopology(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestTopologyValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad tenant id", `tenants: [{id: nope}]`},
		{"bad lvap addr", `
tenants:
  - id: 52313ecb-9d00-4b7d-b873-b55d3d9ada26
    lvaps: [{addr: "zz"}]`},
		{"unknown radio", `
tenants:
  - id: 52313ecb-9d00-4b7d-b873-b55d3d9ada26
    lvaps:
      - addr: "11:22:33:44:55:66"
        downlink: [{radio: "00:0d:b9:2f:56:10"}]`},
		{"unknown lvnf", `
tenants:
  - id: 52313ecb-9d00-4b7d-b873-b55d3d9ada26
    lvaps: [{addr: "11:22:33:44:55:66"}]
    links: [{lvap: "11:22:33:44:55:66", lvnf: "aa:bb:cc:dd:ee:ff"}]`},
		{"missing iface", `
tenants:
  - id: 52313ecb-9d00-4b7d-b873-b55d3d9ada26
    lvnfs: [{addr: "aa:bb:cc:dd:ee:ff", ports: [{id: 0}]}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTopology([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}
