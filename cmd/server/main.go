package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/uttammasala/billprint/internal/api"
	"github.com/uttammasala/billprint/internal/printer"
	"github.com/uttammasala/billprint/internal/printing"
	"github.com/uttammasala/billprint/internal/receipt"
	"github.com/uttammasala/billprint/internal/registry"
	"github.com/uttammasala/billprint/internal/renderer"
	"github.com/uttammasala/billprint/internal/transport"
	"github.com/uttammasala/billprint/pkg/bill"
)

// Version is set during build via ldflags
var Version = "dev"

func main() {
	// A missing .env is fine; the environment and flags still apply
	_ = godotenv.Load()

	fs := ff.NewFlagSet("billprint")
	var (
		addr          = fs.StringLong("addr", "0.0.0.0:12212", "HTTP listen address")
		dbPath        = fs.StringLong("db", defaultDataPath("billprint.db"), "registry database path")
		shopPath      = fs.StringLong("shop", "", "business identity TOML file")
		artifactDir   = fs.StringLong("artifacts", defaultDataPath("artifacts"), "directory for undelivered .bin receipts")
		spoolDir      = fs.StringLong("spool", defaultDataPath("spool"), "directory for print-dialog PDFs")
		chromePath    = fs.StringLong("chrome-path", "", "Chrome executable (detected when empty)")
		spoolCommand  = fs.StringLong("spool-command", "", "command that receives each printed PDF, e.g. \"lp -d receipts\"")
		timezone      = fs.StringLong("timezone", "Asia/Kolkata", "zone for receipt timestamps")
		paper         = fs.StringLong("paper", "80mm", "paper width: 58mm or 80mm")
		codePage      = fs.StringLong("code-page", "", "ESC/POS code page (cp437, cp850, cp858, cp1252); empty sends UTF-8")
		enableBLE     = fs.BoolLong("bluetooth", "enable the Bluetooth LE adapter")
		bleService    = fs.StringLong("ble-service", transport.DefaultServiceUUID, "printer GATT service UUID")
		bleChar       = fs.StringLong("ble-characteristic", transport.DefaultCharacteristicUUID, "printer GATT characteristic UUID")
		chunkSize     = fs.IntLong("chunk-size", transport.DefaultChunkSize, "bytes per GATT write")
		maxRetries    = fs.IntLong("max-retries", 3, "connect attempts per queued job")
		intentCommand = fs.StringLong("intent-command", "", "command that opens intent URIs, e.g. \"am start -a android.intent.action.VIEW -d\"")
		logJSON       = fs.BoolLong("log-json", "log as JSON")
		detect        = fs.BoolLong("detect", "scan for printers at startup")
		showVersion   = fs.BoolLong("version", "show version information")
	)

	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("BILLPRINT")); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(Version)
		os.Exit(0)
	}

	var handler slog.Handler = slog.NewTextHandler(os.Stderr, nil)
	if *logJSON {
		handler = slog.NewJSONHandler(os.Stderr, nil)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	fail := func(msg string, err error) {
		logger.Error(msg, "err", err)
		os.Exit(1)
	}

	business, err := bill.LoadBusiness(*shopPath)
	if err != nil {
		fail("failed to load business identity", err)
	}

	cp, err := receipt.ParseCodePage(*codePage)
	if err != nil {
		fail("invalid code page", err)
	}

	formatter := receipt.NewFormatter(business,
		receipt.WithLocation(receipt.LoadLocation(*timezone)),
		receipt.WithPaperWidth(*paper),
		receipt.WithCodePage(cp),
	)

	var rendererOpts []renderer.Option
	if business.Logo != "" {
		rendererOpts = append(rendererOpts, renderer.WithLogo(business.Logo))
	}
	preview, err := renderer.New(*paper, rendererOpts...)
	if err != nil {
		fail("failed to create renderer", err)
	}

	reg, err := registry.Open(*dbPath)
	if err != nil {
		fail("failed to open registry", err)
	}
	defer reg.Close()

	manager := printer.NewManager(reg, logger)
	if *detect {
		printers, err := manager.DetectPrinters()
		if err != nil {
			logger.Warn("printer detection failed", "err", err)
		} else {
			logger.Info("printers detected", "count", len(printers))
		}
	}

	pool := printer.NewConnectionPool(nil)
	defer pool.DisconnectAll()

	queue := printer.NewPrintQueue(pool, manager, *maxRetries, logger)
	defer queue.Stop()

	// Transports
	var navigator transport.Navigator
	if fields := strings.Fields(*intentCommand); len(fields) > 0 {
		navigator = transport.CommandNavigator{Name: fields[0], Args: fields[1:]}
	}

	var adapter transport.Adapter
	if *enableBLE {
		adapter = transport.NewBluetoothAdapter(0)
	}
	artifacts := transport.DirArtifacts{Dir: *artifactDir}

	execPath := *chromePath
	if execPath == "" {
		execPath = transport.DetectChromePath()
	}
	dialog := transport.NewDialog(transport.ChromeOpener(transport.ChromeConfig{
		ExecPath:   execPath,
		SpoolDir:   *spoolDir,
		PaperWidth: *paper,
		Command:    strings.Fields(*spoolCommand),
	}), transport.DialogOptions{CloseDelay: 500 * time.Millisecond}, logger)

	service := printing.NewService(formatter, printing.Transports{
		Intent: transport.NewIntent(navigator, logger),
		Bluetooth: transport.NewGATT(adapter, transport.StaticCapabilities{Bluetooth: *enableBLE}, artifacts, transport.GATTConfig{
			ServiceUUID:        *bleService,
			CharacteristicUUID: *bleChar,
			ChunkSize:          *chunkSize,
		}, logger),
		Dialog:   dialog,
		Queue:    queue,
		Printers: manager,
		Renderer: preview,
	}, logger)

	server := api.NewServer(api.Config{
		Service:   service,
		Previewer: preview,
		Printers:  manager,
		Jobs:      queue,
		Settings:  reg,
		Artifacts: artifacts,
		Bluetooth: *enableBLE,
		Logger:    logger,
	})

	queue.OnJobUpdate(server.BroadcastJob)
	manager.OnPrinterAdded(func(p *printer.Printer) {
		logger.Info("printer connected", "printer", p.DisplayName())
		server.BroadcastPrinterAdded(p)
	})
	manager.OnPrinterRemoved(func(id string) {
		logger.Info("printer disconnected", "printer", id)
		pool.Disconnect(id)
		server.BroadcastPrinterRemoved(id)
	})

	monitor := printer.NewMonitor(manager, 2*time.Second, logger)
	monitor.Start()
	defer monitor.Stop()

	httpServer := &http.Server{
		Addr:    *addr,
		Handler: server.Handler(),
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting api server", "addr", *addr, "version", Version)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		logger.Error("server error", "err", err)
	case <-sigChan:
		logger.Info("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Warn("shutdown failed", "err", err)
	}
}

// defaultDataPath places name next to the executable when that directory
// is writable, otherwise in the working directory
func defaultDataPath(name string) string {
	if exePath, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exePath)
		testFile := filepath.Join(exeDir, ".billprint-write-test")
		if f, err := os.Create(testFile); err == nil {
			f.Close()
			os.Remove(testFile)
			return filepath.Join(exeDir, name)
		}
	}

	if wd, err := os.Getwd(); err == nil {
		return filepath.Join(wd, name)
	}
	return name
}
