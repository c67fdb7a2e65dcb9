// ABOUTME: Subcommands that query a running gateway over its HTTP API
// ABOUTME: health, sessions and history; tables are rendered with tablewriter

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/PAVANISAGAR17/student-bot/internal/gateway"
)

// baseURL turns the configured listen address into a URL a local client can dial.
func baseURL(listenAddr string) string {
	host, port, err := net.SplitHostPort(listenAddr)
	if err != nil {
		return "http://" + listenAddr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// getJSON performs a GET against the gateway and decodes the JSON body into v.
func getJSON(ctx context.Context, rawURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("status %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func runHealth(ctx context.Context) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	var health gateway.HealthResponse
	if err := getJSON(ctx, baseURL(cfg.Server.HTTPAddr)+"/health", &health); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	var ready gateway.ReadyResponse
	if err := getJSON(ctx, baseURL(cfg.Server.HTTPAddr)+"/health/ready", &ready); err != nil {
		return fmt.Errorf("readiness check failed: %w", err)
	}

	color.Green("healthy")
	fmt.Printf("  time:     %s\n", health.Time)
	fmt.Printf("  sessions: %d\n", ready.Sessions)
	return nil
}

func runSessions(ctx context.Context) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	var body gateway.SessionsResponse
	if err := getJSON(ctx, baseURL(cfg.Server.HTTPAddr)+"/api/sessions", &body); err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	if len(body.Sessions) == 0 {
		color.New(color.FgHiBlack).Println("no live sessions")
		return nil
	}

	table := newTable()
	table.SetHeader([]string{"Session"})
	for _, id := range body.Sessions {
		table.Append([]string{id})
	}
	table.Render()
	return nil
}

func runHistory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	limit := fs.Int("limit", 50, "maximum number of messages to show")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: chatbot-gateway history [-limit N] <session_id>")
	}
	sessionID := fs.Arg(0)

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	u := baseURL(cfg.Server.HTTPAddr) + "/api/sessions/" + url.PathEscape(sessionID) +
		"/messages?limit=" + strconv.Itoa(*limit)

	var body gateway.SessionMessagesResponse
	if err := getJSON(ctx, u, &body); err != nil {
		return fmt.Errorf("fetching history: %w", err)
	}

	if len(body.Messages) == 0 {
		color.New(color.FgHiBlack).Printf("no messages for %s\n", sessionID)
		return nil
	}

	table := newTable()
	table.SetHeader([]string{"ID", "Time", "Role", "Message"})
	for _, m := range body.Messages {
		table.Append([]string{strconv.FormatInt(m.ID, 10), shortTime(m.Timestamp), m.Role, m.Message})
	}
	table.Render()
	return nil
}

func newTable() *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	return table
}

// shortTime renders an RFC3339 timestamp in local time, or returns it unchanged.
func shortTime(ts string) string {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
