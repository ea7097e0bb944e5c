package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/ayursense/internal/domain/reading"
	"github.com/bryanwahyu/ayursense/internal/infra/bridgeclient"
	"github.com/bryanwahyu/ayursense/internal/infra/serial"
)

var bridgeURL string

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Poll the bridge once",
	Long:  `Fetch the current live reading from the bridge and print it.`,
	RunE:  runRead,
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	Long:  `Display the serial ports available for device.path.`,
	RunE:  runPorts,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&bridgeURL, "bridge", "", "bridge base URL (overrides client.bridgeURL)")
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(portsCmd)
}

func newBridgeClient() *bridgeclient.Client {
	url := cfg.Client.BridgeURL
	if bridgeURL != "" {
		url = bridgeURL
	}
	return bridgeclient.NewClient(url, reading.Channel(cfg.Device.Channel),
		bridgeclient.WithTimeout(cfg.Client.RequestTimeout))
}

func runRead(cmd *cobra.Command, args []string) error {
	client := newBridgeClient()
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Client.RequestTimeout)
	defer cancel()

	v, err := client.Fetch(ctx)
	if err != nil {
		return err
	}
	if f, ok := v.Float(); ok {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %g\n", client.Channel(), f)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: no reading yet\n", client.Channel())
	}
	return nil
}

func runPorts(cmd *cobra.Command, args []string) error {
	ports, err := serial.List()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	return nil
}
