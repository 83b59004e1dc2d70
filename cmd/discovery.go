package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evbridge/skoda-mqtt/config"
	"github.com/evbridge/skoda-mqtt/core/discovery"
)

var discoveryCmd = &cobra.Command{
	Use:   "discovery",
	Short: "Print the Home Assistant discovery documents",
	RunE:  runDiscovery,
}

func init() {
	rootCmd.AddCommand(discoveryCmd)
}

func runDiscovery(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	dev := discovery.NewDevice(cfg.Skoda.VIN, cfg.Discovery.DeviceName,
		cfg.Discovery.DeviceManufacturer, cfg.Discovery.DeviceModel)
	entries := discovery.Build(dev, cfg.Bridge.TopicPrefix, cfg.Discovery.Prefix)
	for _, e := range entries {
		var pretty json.RawMessage = e.Payload
		out, err := json.MarshalIndent(pretty, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n\n", e.Topic, out)
	}
	return nil
}
