package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// ServerStatus holds the probed health of the running server.
type ServerStatus struct {
	MetricsAddr string `json:"metrics_addr"`
	Alive       bool   `json:"alive"`
	Ready       bool   `json:"ready"`
	Error       string `json:"error,omitempty"`
}

// statusConfig holds configuration for the status command.
type statusConfig struct {
	metricsAddr string
	jsonOutput  bool
}

// newStatusCmd creates the status subcommand with all flags configured.
func newStatusCmd() *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show health of the running Garrison server",
		Long:  `Probe the server's liveness and readiness endpoints and report the result.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.metricsAddr, "metrics-addr", defaultMetricsAddr, "metrics/health HTTP address to probe")
	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")

	return cmd
}

// runStatus executes the status command.
func runStatus(cmd *cobra.Command, cfg *statusConfig) error {
	status := probeServer(cfg.metricsAddr)

	if cfg.jsonOutput {
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	switch {
	case !status.Alive:
		reason := "not running"
		if status.Error != "" {
			reason = status.Error
		}
		cmd.Printf("garrison: stopped (%s)\n", reason)
	case !status.Ready:
		cmd.Println("garrison: running, not ready (database unreachable)")
	default:
		cmd.Println("garrison: running, ready")
	}
	return nil
}

// probeServer checks the liveness and readiness probes at the given address.
func probeServer(metricsAddr string) ServerStatus {
	status := ServerStatus{MetricsAddr: metricsAddr}
	client := &http.Client{Timeout: 2 * time.Second}
	base := "http://" + metricsAddr

	alive, err := probe(client, base+"/healthz/liveness")
	if err != nil {
		status.Error = fmt.Sprintf("failed to connect: %v", err)
		return status
	}
	status.Alive = alive

	ready, err := probe(client, base+"/healthz/readiness")
	if err != nil {
		status.Error = fmt.Sprintf("readiness probe failed: %v", err)
		return status
	}
	status.Ready = ready

	return status
}

// probe returns true when the endpoint answers 200 with body "ok".
func probe(client *http.Client, url string) (bool, error) {
	resp, err := client.Get(url)
	if err != nil {
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return false, err
	}

	return resp.StatusCode == http.StatusOK && strings.TrimSpace(string(body)) == "ok", nil
}
