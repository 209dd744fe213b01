// Package command provides the text command console of the print agent
package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/uttammasala/billprint/internal/printer"
	"github.com/uttammasala/billprint/internal/printing"
	"github.com/uttammasala/billprint/internal/transport"
)

// Printers is the printer management the console drives
type Printers interface {
	DetectPrinters() ([]*printer.Printer, error)
	GetPrinter(id string) *printer.Printer
	GetAllPrinters() []*printer.Printer
	SetPrinterName(id, name string) error
	AddNetworkPrinter(host string, port int, description string) (string, error)
}

// Jobs is the read side of the print queue
type Jobs interface {
	GetJob(id string) *printer.PrintJob
	GetAllJobs() []*printer.PrintJob
	ClearCompleted() int
}

// Settings stores the preferred printer choice
type Settings interface {
	PreferredChoice() (string, error)
	SetPreferredChoice(choice string) error
}

// Deps are the collaborators of an Executor. Printers and Jobs may be nil
// when raw printing is disabled.
type Deps struct {
	Service  *printing.Service
	Printers Printers
	Jobs     Jobs
	Settings Settings
	Caps     transport.Capabilities
}

// Executor executes commands
type Executor struct {
	deps Deps
}

// NewExecutor creates a new command executor
func NewExecutor(deps Deps) *Executor {
	return &Executor{deps: deps}
}

// Result represents the result of executing a command
type Result struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

func failure(format string, args ...any) *Result {
	return &Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// Execute executes a command string and returns a result
func (e *Executor) Execute(ctx context.Context, cmdStr string) *Result {
	parts := parseCommand(cmdStr)
	if len(parts) == 0 {
		return failure("empty command")
	}

	command := parts[0]
	args := parts[1:]

	switch command {
	case "print":
		return e.handlePrint(ctx, args)
	case "render":
		return e.handleRender(ctx, args)
	case "printer":
		return e.handlePrinter(args)
	case "job":
		return e.handleJob(args)
	case "detect":
		return e.handleDetect(args)
	case "choice":
		return e.handleChoice(args)
	case "help":
		return e.handleHelp(args)
	default:
		return failure("unknown command: %s. Type 'help' for available commands", command)
	}
}

// parseCommand parses a command string into parts, handling quoted strings
func parseCommand(cmdStr string) []string {
	cmdStr = strings.TrimSpace(cmdStr)
	if cmdStr == "" {
		return []string{}
	}

	var parts []string
	var current strings.Builder
	inQuotes := false
	quoted := false
	quoteChar := byte(0)

	for i := 0; i < len(cmdStr); i++ {
		char := cmdStr[i]

		switch {
		case char == '"' || char == '\'':
			if !inQuotes {
				inQuotes, quoted, quoteChar = true, true, char
			} else if char == quoteChar {
				inQuotes, quoteChar = false, 0
			} else {
				current.WriteByte(char)
			}
		case (char == ' ' || char == '\t') && !inQuotes:
			if current.Len() > 0 || quoted {
				parts = append(parts, current.String())
				current.Reset()
				quoted = false
			}
		default:
			current.WriteByte(char)
		}
	}

	if current.Len() > 0 || quoted {
		parts = append(parts, current.String())
	}

	return parts
}
