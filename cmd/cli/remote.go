package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// CommandResult is the agent's answer to a command
type CommandResult struct {
	Success   bool           `json:"success"`
	Message   string         `json:"message,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Result    map[string]any `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	Cancelled bool           `json:"cancelled,omitempty"`
}

// client talks to a running agent
type client struct {
	serverURL string
	http      *http.Client
}

func newClient(serverURL string) *client {
	return &client{
		serverURL: strings.TrimSuffix(serverURL, "/"),
		http:      &http.Client{Timeout: 2 * time.Minute},
	}
}

// post sends body as JSON and decodes the agent's reply
func (c *client) post(path string, body any) *CommandResult {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return &CommandResult{Error: fmt.Sprintf("failed to marshal request: %v", err)}
	}

	resp, err := c.http.Post(c.serverURL+path, "application/json", bytes.NewReader(jsonData))
	if err != nil {
		return &CommandResult{Error: fmt.Sprintf("failed to connect to server: %v", err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &CommandResult{Error: fmt.Sprintf("failed to read response: %v", err)}
	}

	var result CommandResult
	if err := json.Unmarshal(data, &result); err != nil {
		return &CommandResult{Error: fmt.Sprintf("failed to parse response: %v", err)}
	}
	return &result
}

// command runs a console command on the agent
func (c *client) command(args []string) *CommandResult {
	return c.post("/command", map[string]string{"command": joinCommand(args)})
}

// printBill sends a local bill file to the agent
func (c *client) printBill(path, choice, printerID string, raster bool) *CommandResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return &CommandResult{Error: fmt.Sprintf("failed to read bill: %v", err)}
	}

	return c.post("/print", map[string]any{
		"bill":       json.RawMessage(data),
		"choice":     choice,
		"printer_id": printerID,
		"raster":     raster,
	})
}

// joinCommand quotes arguments that contain spaces so the console parser
// sees them as one argument
func joinCommand(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		switch {
		case arg == "":
			quoted[i] = `""`
		case strings.ContainsAny(arg, " \t"):
			if strings.Contains(arg, `"`) {
				quoted[i] = "'" + arg + "'"
			} else {
				quoted[i] = `"` + arg + `"`
			}
		default:
			quoted[i] = arg
		}
	}
	return strings.Join(quoted, " ")
}

func printSuccess(w io.Writer, result *CommandResult) {
	if result.Message != "" {
		fmt.Fprintln(w, successStyle.Render(result.Message))
	}

	data := result.Data
	if data == nil {
		data = result.Result
	}
	if data == nil {
		return
	}

	if printers, ok := data["printers"].([]any); ok {
		fmt.Fprintln(w, titleStyle.Render("\nPrinters:"))
		for _, p := range printers {
			if printer, ok := p.(map[string]any); ok {
				name, _ := printer["name"].(string)
				if name == "" {
					name, _ = printer["description"].(string)
				}
				fmt.Fprintf(w, "  %s: %s %s\n", idStyle.Render(fmt.Sprint(printer["id"])), name,
					mutedStyle.Render(fmt.Sprintf("(%v)", printer["type"])))
			}
		}
	}

	if jobs, ok := data["jobs"].([]any); ok {
		fmt.Fprintln(w, titleStyle.Render("\nJobs:"))
		for _, j := range jobs {
			if job, ok := j.(map[string]any); ok {
				status := fmt.Sprint(job["status"])
				fmt.Fprintf(w, "  %s: %s %s\n", idStyle.Render(fmt.Sprint(job["id"])),
					statusStyle(status).Render(status), mutedStyle.Render(fmt.Sprintf("(printer: %v)", job["printer_id"])))
			}
		}
	}

	for _, key := range []string{"choice", "job_id", "printer_id", "intent_uri", "link", "artifact"} {
		if value, ok := data[key].(string); ok && value != "" {
			fmt.Fprintf(w, "%s %s\n", mutedStyle.Render(key+":"), value)
		}
	}

	if delivery, ok := data["delivery"].(map[string]any); ok {
		fmt.Fprintf(w, "%s %v", mutedStyle.Render("delivery:"), delivery["method"])
		if artifact, ok := delivery["artifact"].(string); ok && artifact != "" {
			fmt.Fprintf(w, " (%s)", artifact)
		}
		fmt.Fprintln(w)
	}
}

func printError(w io.Writer, result *CommandResult) {
	switch {
	case result.Cancelled:
		fmt.Fprintln(w, mutedStyle.Render("No printer selected"))
	case result.Error != "":
		fmt.Fprintf(w, "%s %s\n", errorStyle.Render("Error:"), result.Error)
	case result.Message != "":
		fmt.Fprintln(w, result.Message)
	}
}
