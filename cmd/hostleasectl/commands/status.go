package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hostlease/hostlease/internal/cli/health"
	"github.com/hostlease/hostlease/internal/cli/output"
	"github.com/hostlease/hostlease/internal/cli/timeutil"
)

var statusOutput string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a running hostleased instance's lease and trace status",
	Long: `Status queries a running hostleased instance's read-only status
API (/healthz, /v1/lease, /v1/trace/stats) and prints the result.

Examples:
  hostleasectl status
  hostleasectl status --api-addr http://host1:8443 --api-token $TOKEN
  hostleasectl status --output json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

type leaseStatus struct {
	Healthy              bool   `json:"healthy"`
	Service              string `json:"service,omitempty"`
	StartedAt            string `json:"startedAt,omitempty"`
	Uptime               string `json:"uptime,omitempty"`
	HasLease             bool   `json:"hasLease"`
	LeaseID              string `json:"leaseId"`
	State                string `json:"state"`
	LastRenewalAt        string `json:"lastRenewalAt,omitempty"`
	LastRenewalLatencyMs int64  `json:"lastRenewalLatencyMs"`
	BufferedRecords      int    `json:"bufferedRecords"`
	LastFlushAt          string `json:"lastFlushAt,omitempty"`
	LastFlushError       string `json:"lastFlushError,omitempty"`
}

func (s leaseStatus) Headers() []string {
	return []string{"FIELD", "VALUE"}
}

func (s leaseStatus) Rows() [][]string {
	rows := [][]string{
		{"healthy", fmt.Sprintf("%v", s.Healthy)},
	}
	if s.Service != "" {
		rows = append(rows, []string{"service", s.Service})
	}
	if s.StartedAt != "" {
		rows = append(rows, []string{"startedAt", timeutil.FormatTime(s.StartedAt)})
	}
	if s.Uptime != "" {
		rows = append(rows, []string{"uptime", timeutil.FormatUptime(s.Uptime)})
	}
	return append(rows,
		[]string{"hasLease", fmt.Sprintf("%v", s.HasLease)},
		[]string{"leaseId", s.LeaseID},
		[]string{"state", s.State},
		[]string{"lastRenewalAt", s.LastRenewalAt},
		[]string{"lastRenewalLatencyMs", fmt.Sprintf("%d", s.LastRenewalLatencyMs)},
		[]string{"bufferedRecords", fmt.Sprintf("%d", s.BufferedRecords)},
		[]string{"lastFlushAt", s.LastFlushAt},
		[]string{"lastFlushError", s.LastFlushError},
	)
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 5 * time.Second}

	var result leaseStatus

	var healthResp health.Response
	if err := getJSON(client, apiAddr+"/healthz", &healthResp); err == nil {
		result.Healthy = healthResp.Status == "healthy"
		result.Service = healthResp.Data.Service
		result.StartedAt = healthResp.Data.StartedAt
		result.Uptime = healthResp.Data.Uptime
	}

	var lease struct {
		HasLease             bool   `json:"hasLease"`
		LeaseID              string `json:"leaseId"`
		State                string `json:"state"`
		LastRenewalAt        string `json:"lastRenewalAt"`
		LastRenewalLatencyMs int64  `json:"lastRenewalLatencyMs"`
	}
	if err := getJSON(client, apiAddr+"/v1/lease", &lease); err != nil {
		return fmt.Errorf("fetching lease status: %w", err)
	}
	result.HasLease = lease.HasLease
	result.LeaseID = lease.LeaseID
	result.State = lease.State
	result.LastRenewalAt = lease.LastRenewalAt
	result.LastRenewalLatencyMs = lease.LastRenewalLatencyMs

	var stats struct {
		BufferedRecords int    `json:"bufferedRecords"`
		LastFlushAt     string `json:"lastFlushAt"`
		LastFlushError  string `json:"lastFlushError"`
	}
	if err := getJSON(client, apiAddr+"/v1/trace/stats", &stats); err != nil {
		return fmt.Errorf("fetching trace stats: %w", err)
	}
	result.BufferedRecords = stats.BufferedRecords
	result.LastFlushAt = stats.LastFlushAt
	result.LastFlushError = stats.LastFlushError

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, result)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, result)
	default:
		return output.PrintTable(os.Stdout, result)
	}
}

func getJSON(client *http.Client, url string, out any) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+apiToken)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
