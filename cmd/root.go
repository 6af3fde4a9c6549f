package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ovs-container-lab/vport-intents/pkg/config"
)

const (
	programName    = "vportd"
	programVersion = "0.1.0"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   programName,
	Short: "Steers tenant traffic between virtual ports through network intents",
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	config.SetDefaults(viper.GetViper())

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file")
	flags.BoolP(config.KeyDebug, "D", false, "Enable debug logging")
	flags.String(config.KeyDataDir, "/data", "Directory holding the intent journal")
	flags.String(config.KeyIntentBackend, config.BackendREST, "Intent backend (rest or redis)")
	flags.String(config.KeyIntentURL, "http://127.0.0.1:8080", "Base URL of the intent server")
	flags.Duration(config.KeyIntentTimeout, 5*time.Second, "Timeout of intent server requests")
	flags.String(config.KeyRedisAddr, "127.0.0.1:6379", "Redis address of the intent bus")
	flags.String(config.KeyRedisPassword, "", "Redis password")
	flags.Int(config.KeyRedisDB, 0, "Redis database")
	flags.String(config.KeyBridge, "br-ovs", "OVS bridge holding the LVNF interfaces")
	flags.StringP(config.KeyTopology, "t", "", "Topology file")
	flags.String(config.KeyMetricsAddr, "", "Address to serve metrics on (disabled when empty)")
	if err := viper.BindPFlags(flags); err != nil {
		logrus.Fatalf("Failed to bind flags: %v", err)
	}

	rootCmd.AddCommand(runCmd, recoverCmd, portsCmd, versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	viper.SetEnvPrefix("vport")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		if err := viper.ReadInConfig(); err != nil {
			logrus.Fatalf("Failed to read config file %s: %v", cfgFile, err)
		}
	}

	if viper.GetBool(config.KeyDebug) {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
