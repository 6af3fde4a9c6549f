package cmd

import (
	"encoding/json"
	"fmt"
	"net"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ovs-container-lab/vport-intents/pkg/config"
	"github.com/ovs-container-lab/vport-intents/pkg/controller"
	"github.com/ovs-container-lab/vport-intents/pkg/ovs"
	"github.com/ovs-container-lab/vport-intents/pkg/types"
	"github.com/ovs-container-lab/vport-intents/pkg/vport"
)

var (
	portsTenant string
	portsLVAP   string
	portsLVNF   string
	portsID     int
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "Print the virtual ports of an LVAP or LVNF as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		topo, err := config.LoadTopology(cfg.Topology)
		if err != nil {
			return err
		}
		tenantID, err := uuid.Parse(portsTenant)
		if err != nil {
			return fmt.Errorf("invalid tenant id: %w", err)
		}

		ovsClient, err := ovs.NewClient()
		if err != nil {
			return fmt.Errorf("failed to create OVS client: %w", err)
		}

		// Building issues no intents, so no backend is needed
		ctrl := controller.New(nil, nil, ovsClient, cfg.Bridge, controller.ResolveOnly())
		if err := ctrl.Build(topo); err != nil {
			return err
		}
		tenant, err := ctrl.Tenant(tenantID)
		if err != nil {
			return err
		}

		ports, err := lookupPorts(tenant, portsLVAP, portsLVNF, portsID)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ports)
	},
}

func init() {
	flags := portsCmd.Flags()
	flags.StringVar(&portsTenant, "tenant", "", "Tenant id")
	flags.StringVar(&portsLVAP, "lvap", "", "LVAP address")
	flags.StringVar(&portsLVNF, "lvnf", "", "LVNF address")
	flags.IntVar(&portsID, "port", -1, "Virtual port id (all ports when negative)")
}

type portTable interface {
	Ports() []*vport.Port
	Port(id int) (*vport.Port, error)
}

func lookupPorts(tenant *types.Tenant, lvapAddr, lvnfAddr string, id int) (interface{}, error) {
	var table portTable
	switch {
	case lvapAddr != "":
		addr, err := net.ParseMAC(lvapAddr)
		if err != nil {
			return nil, err
		}
		lvap, err := tenant.LVAP(addr)
		if err != nil {
			return nil, err
		}
		table = lvap
	case lvnfAddr != "":
		addr, err := net.ParseMAC(lvnfAddr)
		if err != nil {
			return nil, err
		}
		lvnf, err := tenant.LVNF(addr)
		if err != nil {
			return nil, err
		}
		table = lvnf
	default:
		return nil, fmt.Errorf("one of --lvap or --lvnf is required")
	}

	if id < 0 {
		return table.Ports(), nil
	}
	return table.Port(id)
}
