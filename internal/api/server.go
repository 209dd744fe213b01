// Package api handles HTTP and WebSocket API endpoints
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/uttammasala/billprint/internal/command"
	"github.com/uttammasala/billprint/internal/printer"
	"github.com/uttammasala/billprint/internal/printing"
	"github.com/uttammasala/billprint/internal/receipt"
	"github.com/uttammasala/billprint/internal/registry"
	"github.com/uttammasala/billprint/internal/renderer"
	"github.com/uttammasala/billprint/internal/transport"
	"github.com/uttammasala/billprint/pkg/bill"
)

// Previewer draws receipt preview images
type Previewer interface {
	Render(lines []receipt.PreviewLine, barcodeValue, qrValue string) (image.Image, error)
}

// ArtifactOpener resolves stored fallback artifacts to file paths
type ArtifactOpener interface {
	Open(name string) (string, error)
}

// Config wires the server to the rest of the agent. Printers, Jobs and
// Artifacts may be nil.
type Config struct {
	Service   *printing.Service
	Previewer Previewer
	Printers  command.Printers
	Jobs      command.Jobs
	Settings  command.Settings
	Artifacts ArtifactOpener
	// Bluetooth reports whether this agent can reach BLE printers
	Bluetooth bool
	Logger    *slog.Logger
}

// Server is the API server
type Server struct {
	router   *gin.Engine
	config   Config
	executor *command.Executor
	hub      *hub
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewServer creates a new API server
func NewServer(config Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.Default()
	router.Use(corsMiddleware())

	server := &Server{
		router: router,
		config: config,
		executor: command.NewExecutor(command.Deps{
			Service:  config.Service,
			Printers: config.Printers,
			Jobs:     config.Jobs,
			Settings: config.Settings,
			Caps:     transport.StaticCapabilities{Bluetooth: config.Bluetooth},
		}),
		hub:    newHub(),
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	server.setupRoutes()

	return server
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Printing
	s.router.POST("/print", s.handlePrint)
	s.router.POST("/receipt/text", s.handleReceiptText)
	s.router.POST("/receipt/pos", s.handleReceiptPOS)
	s.router.POST("/receipt/html", s.handleReceiptHTML)
	s.router.POST("/receipt/preview", s.handleReceiptPreview)
	s.router.POST("/receipt/share", s.handleReceiptShare)
	s.router.GET("/artifacts/:name", s.handleArtifact)

	// Settings
	s.router.GET("/settings/choice", s.handleGetChoice)
	s.router.PUT("/settings/choice", s.handleSetChoice)

	// Attached printers
	s.router.GET("/printers", s.handleGetPrinters)
	s.router.POST("/detect", s.handleDetect)
	s.router.POST("/printer/:id/name", s.handleSetPrinterName)
	s.router.POST("/printer/network", s.handleAddNetworkPrinter)
	s.router.GET("/jobs", s.handleGetJobs)
	s.router.GET("/job/:id", s.handleGetJob)

	s.router.POST("/command", s.handleCommand)
	s.router.GET("/ws", s.handleWebSocket)
}

// capabilities describes the requesting device
func (s *Server) capabilities(c *gin.Context) transport.StaticCapabilities {
	return transport.FromUserAgent(c.Request.UserAgent(), s.config.Bluetooth)
}

func (s *Server) storedChoice() string {
	if s.config.Settings == nil {
		return ""
	}
	stored, err := s.config.Settings.PreferredChoice()
	if err != nil {
		s.logger.Warn("reading printer choice failed", "err", err)
	}
	return stored
}

// printRequest is the body of POST /print and of websocket print events
type printRequest struct {
	Bill      json.RawMessage `json:"bill"`
	Choice    string          `json:"choice"`
	PrinterID string          `json:"printer_id"`
	Raster    bool            `json:"raster"`
}

func (s *Server) print(ctx context.Context, req printRequest, caps transport.Capabilities) (*printing.Result, error) {
	if len(req.Bill) == 0 {
		return nil, bill.ErrNilBill
	}
	b, err := bill.Parse(req.Bill)
	if err != nil {
		return nil, err
	}

	choice := printing.Resolve(s.storedChoice(), caps)
	if req.Choice != "" {
		if choice, err = printing.ParseChoice(req.Choice); err != nil {
			return nil, err
		}
	}

	return s.config.Service.PrintReceipt(ctx, printing.Request{
		Bill:      b,
		Choice:    choice,
		PrinterID: req.PrinterID,
		Raster:    req.Raster,
	})
}

// handlePrint handles a print request
func (s *Server) handlePrint(c *gin.Context) {
	var req printRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.print(c.Request.Context(), req, s.capabilities(c))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

// writeError maps print failures to status codes
func (s *Server) writeError(c *gin.Context, err error) {
	var writeErr *transport.WriteError
	switch {
	case errors.Is(err, transport.ErrDeviceSelectionCancelled):
		c.JSON(http.StatusConflict, gin.H{"success": false, "cancelled": true, "error": err.Error()})
	case errors.As(err, &writeErr):
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error":   err.Error(),
			"chunk":   writeErr.Chunk,
			"total":   writeErr.Total,
			"written": writeErr.Written,
		})
	case errors.Is(err, transport.ErrConnectionRejected):
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, transport.ErrBluetoothUnavailable), errors.Is(err, printing.ErrRawUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, printing.ErrPrinterNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, bill.ErrNilBill), errors.Is(err, bill.ErrNegativeAmount),
		errors.Is(err, printing.ErrUnknownChoice), errors.Is(err, printing.ErrRasterNeedsPrinter),
		errors.Is(err, bill.ErrMalformed):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
	}
}

// readBill parses the request body as a bill
func (s *Server) readBill(c *gin.Context) (*bill.Bill, bool) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	b, err := bill.Parse(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return b, true
}

func (s *Server) handleReceiptText(c *gin.Context) {
	b, ok := s.readBill(c)
	if !ok {
		return
	}
	payload := s.config.Service.Formatter().FormatText(b)
	c.JSON(http.StatusOK, gin.H{
		"payload":    payload,
		"intent_uri": receipt.IntentURI(payload),
	})
}

func (s *Server) handleReceiptPOS(c *gin.Context) {
	b, ok := s.readBill(c)
	if !ok {
		return
	}
	data := s.config.Service.Formatter().FormatPOS(b)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", transport.ArtifactName(b.Number())))
	c.Data(http.StatusOK, "application/octet-stream", data)
}

func (s *Server) handleReceiptHTML(c *gin.Context) {
	b, ok := s.readBill(c)
	if !ok {
		return
	}
	html, err := s.config.Service.Formatter().RenderHTML(b)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

func (s *Server) handleReceiptPreview(c *gin.Context) {
	if s.config.Previewer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "preview is not configured"})
		return
	}
	b, ok := s.readBill(c)
	if !ok {
		return
	}

	f := s.config.Service.Formatter()
	img, err := s.config.Previewer.Render(f.PreviewLines(b), b.Number(), f.ShareLink(b, b.PhoneNumber))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var buf bytes.Buffer
	if err := renderer.EncodePNG(&buf, img); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func (s *Server) handleReceiptShare(c *gin.Context) {
	b, ok := s.readBill(c)
	if !ok {
		return
	}
	phone := c.Query("phone")
	if phone == "" {
		phone = b.PhoneNumber
	}
	c.JSON(http.StatusOK, gin.H{"link": s.config.Service.Formatter().ShareLink(b, phone)})
}

// handleArtifact serves a stored .bin fallback for download
func (s *Server) handleArtifact(c *gin.Context) {
	if s.config.Artifacts == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "artifact not found"})
		return
	}
	name := c.Param("name")
	path, err := s.config.Artifacts.Open(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "artifact not found"})
		return
	}
	c.FileAttachment(path, name)
}

func (s *Server) handleGetChoice(c *gin.Context) {
	stored := s.storedChoice()
	c.JSON(http.StatusOK, gin.H{
		"choice": printing.Resolve(stored, s.capabilities(c)),
		"stored": stored,
	})
}

func (s *Server) handleSetChoice(c *gin.Context) {
	var req struct {
		Choice string `json:"choice" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "choice is required"})
		return
	}
	choice, err := printing.ParseChoice(req.Choice)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if s.config.Settings == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "settings are not available"})
		return
	}
	if err := s.config.Settings.SetPreferredChoice(string(choice)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "choice": choice})
}

// rawEnabled answers 503 when no printer manager is wired
func (s *Server) rawEnabled(c *gin.Context) bool {
	if s.config.Printers == nil || s.config.Jobs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "raw printing is disabled"})
		return false
	}
	return true
}

// handleGetPrinters returns all detected printers
func (s *Server) handleGetPrinters(c *gin.Context) {
	if !s.rawEnabled(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"printers": s.config.Printers.GetAllPrinters()})
}

func (s *Server) handleDetect(c *gin.Context) {
	if !s.rawEnabled(c) {
		return
	}
	printers, err := s.config.Printers.DetectPrinters()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"printers": printers})
}

// handleSetPrinterName sets a custom name for a printer
func (s *Server) handleSetPrinterName(c *gin.Context) {
	if !s.rawEnabled(c) {
		return
	}
	printerID := c.Param("id")

	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	if err := s.config.Printers.SetPrinterName(printerID, req.Name); err != nil {
		if errors.Is(err, registry.ErrPrinterNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "printer not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleAddNetworkPrinter manually adds a network printer
func (s *Server) handleAddNetworkPrinter(c *gin.Context) {
	if !s.rawEnabled(c) {
		return
	}
	var req struct {
		Host        string `json:"host" binding:"required"`
		Port        int    `json:"port"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "host is required"})
		return
	}
	if req.Port < 0 || req.Port > 65535 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid port"})
		return
	}

	printerID, err := s.config.Printers.AddNetworkPrinter(req.Host, req.Port, req.Description)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"printer_id": printerID,
		"printer":    s.config.Printers.GetPrinter(printerID),
	})
}

// handleGetJobs returns all print jobs
func (s *Server) handleGetJobs(c *gin.Context) {
	if !s.rawEnabled(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": s.config.Jobs.GetAllJobs()})
}

// handleGetJob returns a specific print job
func (s *Server) handleGetJob(c *gin.Context) {
	if !s.rawEnabled(c) {
		return
	}
	job := s.config.Jobs.GetJob(c.Param("id"))
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

// handleCommand handles command execution requests
func (s *Server) handleCommand(c *gin.Context) {
	var req struct {
		Command string `json:"command" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "command is required"})
		return
	}

	result := s.executor.Execute(c.Request.Context(), req.Command)
	if !result.Success {
		c.JSON(http.StatusBadRequest, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// BroadcastJob sends a job status change to all websocket clients
func (s *Server) BroadcastJob(job printer.PrintJob) {
	s.hub.broadcast(WSMessage{Event: EventJob, Data: job})
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
