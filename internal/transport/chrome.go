package transport

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// ChromeConfig configures the headless Chrome print surface
type ChromeConfig struct {
	ExecPath   string   // empty lets chromedp find Chrome
	SpoolDir   string   // where printed PDFs are written
	PaperWidth string   // "58mm" or "80mm"
	Command    []string // optional spooler, e.g. ["lp", "-d", "receipts"]; the PDF path is appended
}

// DetectChromePath checks CHROME_PATH and the usual install locations
func DetectChromePath() string {
	if path := os.Getenv("CHROME_PATH"); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	for _, path := range []string{
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// ChromeOpener returns a SurfaceOpener that starts a headless Chrome tab
// per document
func ChromeOpener(config ChromeConfig) SurfaceOpener {
	return func(ctx context.Context) (Surface, error) {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.NoSandbox,
			chromedp.Flag("enable-print-preview", true),
		)
		if config.ExecPath != "" {
			opts = append(opts, chromedp.ExecPath(config.ExecPath))
		}

		// The browser outlives ctx; Close tears it down.
		allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
		tabCtx, tabCancel := chromedp.NewContext(allocCtx)

		surface := &chromeSurface{
			ctx:    tabCtx,
			config: config,
			cancel: func() {
				tabCancel()
				allocCancel()
			},
		}

		if err := surface.run(ctx); err != nil {
			surface.cancel()
			return nil, fmt.Errorf("failed to start chrome: %w", err)
		}

		return surface, nil
	}
}

type chromeSurface struct {
	ctx    context.Context
	cancel context.CancelFunc
	config ChromeConfig
	name   string
}

// run executes actions in the tab, aborting when ctx is done
func (s *chromeSurface) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (s *chromeSurface) Load(ctx context.Context, doc Document) error {
	s.name = doc.Name
	dataURL := "data:text/html;charset=utf-8;base64," + base64.StdEncoding.EncodeToString([]byte(doc.HTML))

	var fontsReady bool
	return s.run(ctx,
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body"),
		chromedp.Evaluate(`document.fonts.ready.then(() => true)`, &fontsReady,
			func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
				return p.WithAwaitPromise(true)
			}),
	)
}

func (s *chromeSurface) Print(ctx context.Context) error {
	var pdf []byte
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		pdf, _, err = page.PrintToPDF().
			WithPrintBackground(true).
			WithPreferCSSPageSize(true).
			WithPaperWidth(paperInches(s.config.PaperWidth)).
			WithMarginTop(0).
			WithMarginBottom(0).
			WithMarginLeft(0).
			WithMarginRight(0).
			Do(ctx)
		return err
	}))
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return ErrPrintCancelled
		}
		return err
	}

	dir := s.config.SpoolDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create spool directory: %w", err)
	}

	path := filepath.Join(dir, strings.TrimSuffix(ArtifactName(s.name), ArtifactExt)+".pdf")
	if err := os.WriteFile(path, pdf, 0644); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}

	if len(s.config.Command) == 0 {
		return nil
	}

	args := append(append([]string{}, s.config.Command[1:]...), path)
	cmd := exec.CommandContext(ctx, s.config.Command[0], args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return ErrPrintCancelled
		}
		return fmt.Errorf("spooler failed: %w: %s", err, strings.TrimSpace(string(out)))
	}

	return nil
}

func (s *chromeSurface) Close() error {
	s.cancel()
	return nil
}

// paperInches converts "58mm" to inches for PrintToPDF
func paperInches(width string) float64 {
	mm, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(width), "mm"), 64)
	if err != nil || mm <= 0 {
		mm = 58
	}
	return mm / 25.4
}
