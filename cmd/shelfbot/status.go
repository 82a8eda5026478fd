package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/keepmind9/shelfbot/internal/stats"
	"github.com/spf13/cobra"
)

var (
	statusAddr string
	statusJSON bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show status of a running shelfbot",
	Long:  "Query the health server of a running shelfbot and display connection and handler counters",
	Run: func(cmd *cobra.Command, args []string) {
		client := &http.Client{Timeout: 5 * time.Second}
		snap, err := fetchStatus(client, statusAddr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
			os.Exit(1)
		}
		printStatus(cmd.OutOrStdout(), snap, statusJSON)
	},
}

func fetchStatus(client *http.Client, addr string) (*stats.Snapshot, error) {
	base := strings.TrimSuffix(addr, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	resp, err := client.Get(base + "/metrics")
	if err != nil {
		return nil, fmt.Errorf("failed to reach shelfbot at %s: %w", base, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status from %s: %s", base, resp.Status)
	}

	var snap stats.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode metrics: %w", err)
	}
	return &snap, nil
}

func printStatus(w io.Writer, snap *stats.Snapshot, jsonFormat bool) {
	if jsonFormat {
		output, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			fmt.Fprintf(w, "{\"error\": \"failed to marshal json: %v\"}\n", err)
			return
		}
		fmt.Fprintln(w, string(output))
		return
	}

	state := "disconnected"
	switch {
	case snap.Ready:
		state = "ready"
	case snap.Connected:
		state = "connected"
	}
	fmt.Fprintln(w, "shelfbot status:")
	fmt.Fprintf(w, "  - Gateway: %s (%d guilds, %dms)\n", state, snap.Guilds, snap.LatencyMS)
	fmt.Fprintf(w, "  - Uptime: %s\n", snap.Uptime)
	fmt.Fprintf(w, "  - Messages: %d handled / %d received\n", snap.Messages.Handled, snap.Messages.Received)
	fmt.Fprintf(w, "  - Reactions: %d handled / %d received\n", snap.Reactions.Handled, snap.Reactions.Received)
	fmt.Fprintf(w, "  - Interactive: %d messages, %d triggers, %d pending reactions\n",
		snap.Interactive.Messages, snap.Interactive.Triggers, snap.Interactive.PendingReaction)
	fmt.Fprintf(w, "  - Runtime: %s %s, %d goroutines, %dMiB heap\n",
		snap.Runtime.GoVersion, snap.Runtime.Platform, snap.Runtime.Goroutines, snap.Runtime.HeapAllocMiB)
}

func init() {
	statusCmd.Flags().StringVarP(&statusAddr, "addr", "a", "127.0.0.1:8080", "Health server address")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output in JSON format")
}
