package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/evbridge/skoda-mqtt/config"
	"github.com/evbridge/skoda-mqtt/core/state"
	"github.com/evbridge/skoda-mqtt/infra/skoda"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Fetch the vehicle state once and print it",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	timeout := time.Duration(cfg.Bridge.CommandTimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client := skoda.NewClient(cfg.Skoda)
	doc, err := client.Status(ctx)
	if err != nil {
		return fmt.Errorf("fetch status: %w", err)
	}

	payload, err := state.Serialize(state.Project(doc))
	if err != nil {
		return err
	}
	var pretty json.RawMessage = payload
	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
