package command

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/uttammasala/billprint/internal/printing"
	"github.com/uttammasala/billprint/internal/receipt"
	"github.com/uttammasala/billprint/internal/transport"
	"github.com/uttammasala/billprint/pkg/bill"
)

// options splits positional arguments from --name value flags. Flags in
// boolFlags take no value.
func options(args []string, boolFlags ...string) ([]string, map[string]string) {
	var positional []string
	flags := make(map[string]string)

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			positional = append(positional, arg)
			continue
		}
		name, value, hasValue := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		isBool := false
		for _, b := range boolFlags {
			if b == name {
				isBool = true
			}
		}
		switch {
		case hasValue:
		case isBool:
			value = "true"
		case i+1 < len(args):
			i++
			value = args[i]
		}
		flags[name] = value
	}
	return positional, flags
}

// handlePrint handles print commands
// Usage: print <bill.json|url> [--choice thermal|pos|html] [--printer <id>] [--raster]
func (e *Executor) handlePrint(ctx context.Context, args []string) *Result {
	positional, flags := options(args, "raster")
	if len(positional) < 1 {
		return failure("usage: print <bill.json|url> [--choice thermal|pos|html] [--printer <id>] [--raster]")
	}

	b, err := loadBill(ctx, positional[0])
	if err != nil {
		return failure("failed to load bill: %v", err)
	}

	choice, err := e.choice(flags["choice"])
	if err != nil {
		return failure("%v", err)
	}

	result, err := e.deps.Service.PrintReceipt(ctx, printing.Request{
		Bill:      b,
		Choice:    choice,
		PrinterID: flags["printer"],
		Raster:    flags["raster"] == "true",
	})
	if errors.Is(err, transport.ErrDeviceSelectionCancelled) {
		return &Result{Success: true, Message: "No printer selected"}
	}
	if err != nil {
		return failure("print failed: %v", err)
	}

	data := map[string]any{"choice": result.Choice}
	message := fmt.Sprintf("Bill %s printed via %s", b.Number(), result.Choice)
	switch {
	case result.JobID != "":
		data["job_id"] = result.JobID
		message = fmt.Sprintf("Print job queued: %s", result.JobID)
	case result.IntentURI != "":
		data["intent_uri"] = result.IntentURI
		if !result.Navigated {
			message = "Open the intent URI on the device to print"
		}
	case result.Delivery != nil:
		data["delivery"] = result.Delivery
		if result.Delivery.Artifact != "" {
			message = fmt.Sprintf("Bluetooth unavailable, saved %s for download", result.Delivery.Artifact)
		}
	}

	return &Result{Success: true, Message: message, Data: data}
}

// choice resolves an explicit --choice, then the stored preference, then
// the default for the agent's capabilities
func (e *Executor) choice(explicit string) (printing.Choice, error) {
	if explicit != "" {
		return printing.ParseChoice(explicit)
	}
	var stored string
	if e.deps.Settings != nil {
		stored, _ = e.deps.Settings.PreferredChoice()
	}
	return printing.Resolve(stored, e.deps.Caps), nil
}

// handleRender handles render commands
// Usage: render <text|pos|html|share> <bill.json|url> [--phone <number>]
func (e *Executor) handleRender(ctx context.Context, args []string) *Result {
	positional, flags := options(args)
	if len(positional) < 2 {
		return failure("usage: render <text|pos|html|share> <bill.json|url> [--phone <number>]")
	}

	b, err := loadBill(ctx, positional[1])
	if err != nil {
		return failure("failed to load bill: %v", err)
	}
	f := e.deps.Service.Formatter()

	switch positional[0] {
	case "text":
		payload := f.FormatText(b)
		return &Result{Success: true, Data: map[string]any{
			"payload":    payload,
			"intent_uri": receipt.IntentURI(payload),
		}}
	case "pos":
		data := f.FormatPOS(b)
		return &Result{Success: true, Message: fmt.Sprintf("%d bytes", len(data)), Data: map[string]any{
			"bytes":  len(data),
			"base64": base64.StdEncoding.EncodeToString(data),
		}}
	case "html":
		html, err := f.RenderHTML(b)
		if err != nil {
			return failure("render failed: %v", err)
		}
		return &Result{Success: true, Data: map[string]any{"html": html}}
	case "share":
		phone := flags["phone"]
		if phone == "" {
			phone = b.PhoneNumber
		}
		link := f.ShareLink(b, phone)
		return &Result{Success: true, Message: link, Data: map[string]any{"link": link}}
	default:
		return failure("unknown render format: %s. Use: text, pos, html, share", positional[0])
	}
}

// handlePrinter handles printer commands
// Usage: printer list | add-network <host> [port] | rename <id> <name>
func (e *Executor) handlePrinter(args []string) *Result {
	if e.deps.Printers == nil {
		return failure("raw printing is disabled")
	}
	if len(args) == 0 {
		return failure("usage: printer <list|add-network|rename>")
	}

	switch subcommand := args[0]; subcommand {
	case "list":
		printers := e.deps.Printers.GetAllPrinters()
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Found %d printer(s)", len(printers)),
			Data:    map[string]any{"printers": printers},
		}

	case "add-network":
		if len(args) < 2 {
			return failure("usage: printer add-network <host> [port]")
		}
		host := args[1]
		port := 9100
		if len(args) >= 3 {
			var err error
			port, err = strconv.Atoi(args[2])
			if err != nil || port <= 0 || port > 65535 {
				return failure("invalid port: %s", args[2])
			}
		}
		printerID, err := e.deps.Printers.AddNetworkPrinter(host, port, "")
		if err != nil {
			return failure("failed to add printer: %v", err)
		}
		p := e.deps.Printers.GetPrinter(printerID)
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Added network printer: %s", p.Description),
			Data: map[string]any{
				"printer_id": printerID,
				"printer":    p,
			},
		}

	case "rename":
		if len(args) < 3 {
			return failure("usage: printer rename <id> <name>")
		}
		printerID, name := args[1], strings.Join(args[2:], " ")
		if err := e.deps.Printers.SetPrinterName(printerID, name); err != nil {
			return failure("%v", err)
		}
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Renamed printer %s to %s", printerID, name),
		}

	default:
		return failure("unknown printer subcommand: %s. Use: list, add-network, rename", subcommand)
	}
}

// handleJob handles job commands
// Usage: job list | status <id> | clear
func (e *Executor) handleJob(args []string) *Result {
	if e.deps.Jobs == nil {
		return failure("raw printing is disabled")
	}
	if len(args) == 0 {
		return failure("usage: job <list|status|clear>")
	}

	switch subcommand := args[0]; subcommand {
	case "list":
		jobs := e.deps.Jobs.GetAllJobs()
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Found %d job(s)", len(jobs)),
			Data:    map[string]any{"jobs": jobs},
		}

	case "status":
		if len(args) < 2 {
			return failure("usage: job status <id>")
		}
		job := e.deps.Jobs.GetJob(args[1])
		if job == nil {
			return failure("job not found: %s", args[1])
		}
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Job %s is %s", job.ID, job.Status),
			Data:    map[string]any{"job": job},
		}

	case "clear":
		removed := e.deps.Jobs.ClearCompleted()
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Cleared %d completed job(s)", removed),
		}

	default:
		return failure("unknown job subcommand: %s. Use: list, status, clear", subcommand)
	}
}

// handleDetect handles detect command
// Usage: detect
func (e *Executor) handleDetect(args []string) *Result {
	if e.deps.Printers == nil {
		return failure("raw printing is disabled")
	}
	printers, err := e.deps.Printers.DetectPrinters()
	if err != nil {
		return failure("detection failed: %v", err)
	}
	return &Result{
		Success: true,
		Message: fmt.Sprintf("Detected %d printer(s)", len(printers)),
		Data:    map[string]any{"count": len(printers)},
	}
}

// handleChoice shows or stores the preferred printer choice
// Usage: choice [thermal|pos|html]
func (e *Executor) handleChoice(args []string) *Result {
	if len(args) == 0 {
		current, _ := e.choice("")
		return &Result{
			Success: true,
			Message: fmt.Sprintf("Printer choice: %s", current),
			Data:    map[string]any{"choice": current},
		}
	}

	choice, err := printing.ParseChoice(args[0])
	if err != nil {
		return failure("%v", err)
	}
	if e.deps.Settings == nil {
		return failure("settings are not available")
	}
	if err := e.deps.Settings.SetPreferredChoice(string(choice)); err != nil {
		return failure("failed to save choice: %v", err)
	}
	return &Result{
		Success: true,
		Message: fmt.Sprintf("Printer choice set to %s", choice),
		Data:    map[string]any{"choice": choice},
	}
}

// handleHelp handles help command
func (e *Executor) handleHelp(args []string) *Result {
	helpText := `Available Commands:

  print <bill.json|url> [--choice thermal|pos|html] [--printer <id>] [--raster]
    Print a bill. Without --choice the stored preference is used.
    --printer sends ESC/POS bytes to an attached printer through the job queue.

  render <text|pos|html|share> <bill.json|url> [--phone <number>]
    Render a bill without printing it

  printer list
    List all detected printers

  printer add-network <host> [port]
    Add a network printer (default port: 9100)

  printer rename <id> <name>
    Set a custom name for a printer

  job list
    List all print jobs

  job status <id>
    Get status of a specific job

  job clear
    Clear completed jobs from the queue

  detect
    Detect/scan for printers

  choice [thermal|pos|html]
    Show or set the preferred printer choice

  help
    Show this help message

Examples:
  print ./bill-42.json
  print ./bill-42.json --choice pos
  print ./bill-42.json --printer 3f2a... --raster
  render share ./bill-42.json --phone 9898070258
  printer add-network 192.168.1.100 9100
  printer rename 3f2a... "Billing Counter"
  choice thermal
`

	return &Result{
		Success: true,
		Message: helpText,
	}
}

// loadBill reads a bill from a file path or an http(s) URL
func loadBill(ctx context.Context, source string) (*bill.Bill, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return loadBillFromURL(ctx, source)
	}
	return bill.ParseFile(source)
}

func loadBillFromURL(ctx context.Context, url string) (*bill.Bill, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bill from URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch bill: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read bill from URL: %w", err)
	}

	return bill.Parse(data)
}
