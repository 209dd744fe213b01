package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/uttammasala/billprint/pkg/bill"
)

const (
	defaultServerURL = "http://localhost:12212"
)

// Version is set during build via ldflags
var Version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("Error:"), err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "billprint",
		Usage:   "render bills locally or drive a billprint agent",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Value:   defaultServerURL,
				Usage:   "agent URL",
				EnvVars: []string{"BILLPRINT_SERVER"},
			},
		},
		Commands: []*cli.Command{
			renderCommand(),
			printCommand(),
			forwardCommand("printer", "list, add or rename attached printers (list | add-network <host> [port] | rename <id> <name>)"),
			forwardCommand("job", "inspect the raw print queue (list | status <id> | clear)"),
			forwardCommand("detect", "scan for attached printers"),
			forwardCommand("choice", "show or store the preferred printer choice ([thermal|pos|html])"),
		},
	}
}

func renderCommand() *cli.Command {
	renderFlags := []cli.Flag{
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "write to `FILE` instead of stdout"},
		&cli.StringFlag{Name: "shop", Usage: "business identity TOML `FILE`", EnvVars: []string{"BILLPRINT_SHOP"}},
		&cli.StringFlag{Name: "paper", Value: "80mm", Usage: "paper width: 58mm or 80mm", EnvVars: []string{"BILLPRINT_PAPER"}},
		&cli.StringFlag{Name: "timezone", Value: "Asia/Kolkata", Usage: "zone for the receipt timestamp", EnvVars: []string{"BILLPRINT_TIMEZONE"}},
		&cli.StringFlag{Name: "code-page", Usage: "ESC/POS code page for pos output", EnvVars: []string{"BILLPRINT_CODE_PAGE"}},
		&cli.StringFlag{Name: "phone", Usage: "share link phone number (defaults to the bill's)"},
	}

	subcommand := func(format, usage string) *cli.Command {
		return &cli.Command{
			Name:      format,
			Usage:     usage,
			ArgsUsage: "<bill.json>",
			Flags:     renderFlags,
			Action: func(c *cli.Context) error {
				if c.NArg() != 1 {
					return cli.Exit("expected exactly one bill file", 2)
				}
				b, err := bill.ParseFile(c.Args().First())
				if err != nil {
					return err
				}
				return writeOutput(c.String("output"), format, b, renderOptions{
					ShopPath: c.String("shop"),
					Paper:    c.String("paper"),
					Timezone: c.String("timezone"),
					CodePage: c.String("code-page"),
					Phone:    c.String("phone"),
				})
			},
		}
	}

	return &cli.Command{
		Name:  "render",
		Usage: "render a bill without an agent",
		Subcommands: []*cli.Command{
			subcommand(formatText, "RawBT intent URI of the plain-text receipt"),
			subcommand(formatPOS, "ESC/POS bytes"),
			subcommand(formatHTML, "printable HTML page"),
			subcommand(formatPreview, "PNG preview"),
			subcommand(formatShare, "WhatsApp share link"),
		},
	}
}

func printCommand() *cli.Command {
	return &cli.Command{
		Name:      "print",
		Usage:     "print a bill through the agent",
		ArgsUsage: "<bill.json>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "choice", Usage: "thermal, pos or html (stored preference when empty)"},
			&cli.StringFlag{Name: "printer", Usage: "attached printer `ID` for raw ESC/POS"},
			&cli.BoolFlag{Name: "raster", Usage: "print the preview image on the attached printer"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("expected exactly one bill file", 2)
			}
			result := newClient(c.String("server")).printBill(c.Args().First(), c.String("choice"), c.String("printer"), c.Bool("raster"))
			return report(result)
		},
	}
}

// forwardCommand passes its arguments to the agent's command console
func forwardCommand(name, usage string) *cli.Command {
	return &cli.Command{
		Name:            name,
		Usage:           usage,
		SkipFlagParsing: true,
		Action: func(c *cli.Context) error {
			args := append([]string{name}, c.Args().Slice()...)
			return report(newClient(c.String("server")).command(args))
		},
	}
}

// report prints a result and turns failures into a non-zero exit
func report(result *CommandResult) error {
	if result.Success {
		printSuccess(os.Stdout, result)
		return nil
	}
	printError(os.Stderr, result)
	if result.Cancelled {
		return nil
	}
	return cli.Exit("", 1)
}
