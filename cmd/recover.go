package cmd

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ovs-container-lab/vport-intents/pkg/intent"
	"github.com/ovs-container-lab/vport-intents/pkg/store"
)

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Withdraw the intents recorded in the journal",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := context.Background()
		be, err := newBackend(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to intent backend: %w", err)
		}
		defer be.Close()

		journal, err := store.NewStore(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("failed to initialize store: %w", err)
		}

		n, err := journal.Recover(ctx, be)
		logrus.Infof("Withdrew %d intents, %d records left", n, len(journal.ListRecords()))
		if err != nil {
			return err
		}

		// Intents on the bus that no journal knows about are reported, not withdrawn
		if bus, ok := be.(*intent.RedisService); ok {
			active, err := bus.Active(ctx)
			if err != nil {
				return err
			}
			if len(active) > 0 {
				logrus.Warnf("%d intents are still active in Redis: %v", len(active), active)
			}
		}
		return nil
	},
}
