package command

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uttammasala/billprint/internal/printer"
	"github.com/uttammasala/billprint/internal/printing"
	"github.com/uttammasala/billprint/internal/receipt"
	"github.com/uttammasala/billprint/internal/transport"
	"github.com/uttammasala/billprint/pkg/bill"
)

const billJSON = `{"billNumber": 42, "items": [{"name": "Methi", "price": 150, "weight": 2, "total": 300}], "total": 300, "customerName": "Asha", "phoneNumber": "9898070258"}`

type fakePrinters struct {
	printers map[string]*printer.Printer
	detected int
}

func (f *fakePrinters) DetectPrinters() ([]*printer.Printer, error) {
	f.detected++
	return f.GetAllPrinters(), nil
}
func (f *fakePrinters) GetPrinter(id string) *printer.Printer { return f.printers[id] }
func (f *fakePrinters) GetAllPrinters() []*printer.Printer {
	var out []*printer.Printer
	for _, p := range f.printers {
		out = append(out, p)
	}
	return out
}
func (f *fakePrinters) SetPrinterName(id, name string) error {
	p, ok := f.printers[id]
	if !ok {
		return fmt.Errorf("printer not found: %s", id)
	}
	p.Name = name
	return nil
}
func (f *fakePrinters) AddNetworkPrinter(host string, port int, _ string) (string, error) {
	id := fmt.Sprintf("net-%s-%d", host, port)
	f.printers[id] = &printer.Printer{ID: id, Type: printer.TypeNetwork, Host: host, Port: port, Description: fmt.Sprintf("Network: %s:%d", host, port)}
	return id, nil
}

type fakeJobs struct {
	jobs   []*printer.PrintJob
	queued [][]byte
}

func (f *fakeJobs) Enqueue(printerID, label string, payload []byte) string {
	f.queued = append(f.queued, payload)
	job := &printer.PrintJob{ID: fmt.Sprintf("job-%d", len(f.jobs)+1), PrinterID: printerID, Label: label, Status: printer.JobQueued}
	f.jobs = append(f.jobs, job)
	return job.ID
}
func (f *fakeJobs) GetJob(id string) *printer.PrintJob {
	for _, j := range f.jobs {
		if j.ID == id {
			return j
		}
	}
	return nil
}
func (f *fakeJobs) GetAllJobs() []*printer.PrintJob { return f.jobs }
func (f *fakeJobs) ClearCompleted() int              { return 0 }

type memSettings struct{ choice string }

func (m *memSettings) PreferredChoice() (string, error)  { return m.choice, nil }
func (m *memSettings) SetPreferredChoice(c string) error { m.choice = c; return nil }

type dialogFunc func(context.Context, transport.Document) error

func (f dialogFunc) Print(ctx context.Context, doc transport.Document) error { return f(ctx, doc) }

type bleFunc func(context.Context, string, []byte) (*transport.Delivery, error)

func (f bleFunc) Send(ctx context.Context, label string, payload []byte) (*transport.Delivery, error) {
	return f(ctx, label, payload)
}

type harness struct {
	exec     *Executor
	printers *fakePrinters
	jobs     *fakeJobs
	settings *memSettings
	docs     []transport.Document
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		printers: &fakePrinters{printers: map[string]*printer.Printer{"p1": {ID: "p1", Type: printer.TypeSerial, Description: "Serial: rfcomm0"}}},
		jobs:     &fakeJobs{},
		settings: &memSettings{},
	}
	fixed := time.Date(2026, 10, 16, 9, 34, 5, 0, time.UTC)
	f := receipt.NewFormatter(bill.DefaultBusiness(), receipt.WithClock(func() time.Time { return fixed }))
	svc := printing.NewService(f, printing.Transports{
		Dialog: dialogFunc(func(_ context.Context, doc transport.Document) error {
			h.docs = append(h.docs, doc)
			return nil
		}),
		Bluetooth: bleFunc(func(context.Context, string, []byte) (*transport.Delivery, error) {
			return nil, transport.ErrDeviceSelectionCancelled
		}),
		Queue:    h.jobs,
		Printers: h.printers,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	h.exec = NewExecutor(Deps{
		Service:  svc,
		Printers: h.printers,
		Jobs:     h.jobs,
		Settings: h.settings,
		Caps:     transport.StaticCapabilities{},
	})
	return h
}

func writeBill(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bill.json")
	require.NoError(t, os.WriteFile(path, []byte(billJSON), 0o644))
	return path
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", []string{}},
		{"help", []string{"help"}},
		{"printer rename p1 \"Billing Counter\"", []string{"printer", "rename", "p1", "Billing Counter"}},
		{"print  ./bill.json\t--choice pos", []string{"print", "./bill.json", "--choice", "pos"}},
		{"choice ''", []string{"choice", ""}},
		{`render share 'it"s'`, []string{"render", "share", `it"s`}},
	}
	for _, tt := range tests {
		got := parseCommand(tt.input)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseCommand(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestExecuteUnknownAndEmpty(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, "empty command", h.exec.Execute(context.Background(), "  ").Error)
	assert.Contains(t, h.exec.Execute(context.Background(), "fly").Error, "unknown command: fly")
}

func TestPrintUsesStoredChoice(t *testing.T) {
	h := newHarness(t)
	path := writeBill(t)

	// Desktop default is html
	res := h.exec.Execute(context.Background(), "print "+path)
	require.True(t, res.Success, res.Error)
	require.Len(t, h.docs, 1)
	assert.Equal(t, "42", h.docs[0].Name)

	h.settings.choice = "thermal"
	res = h.exec.Execute(context.Background(), "print "+path)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, printing.ChoiceThermal, res.Data["choice"])
	assert.Contains(t, res.Data["intent_uri"], "intent:")
	assert.Equal(t, "Open the intent URI on the device to print", res.Message)
}

func TestPrintSelectionCancelIsNotAFailure(t *testing.T) {
	h := newHarness(t)
	res := h.exec.Execute(context.Background(), "print "+writeBill(t)+" --choice pos")
	assert.True(t, res.Success)
	assert.Equal(t, "No printer selected", res.Message)
}

func TestPrintToAttachedPrinter(t *testing.T) {
	h := newHarness(t)
	res := h.exec.Execute(context.Background(), "print "+writeBill(t)+" --printer p1")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "job-1", res.Data["job_id"])
	require.Len(t, h.jobs.queued, 1)
	assert.Equal(t, []byte{0x1B, '@'}, h.jobs.queued[0][:2])
}

func TestPrintErrors(t *testing.T) {
	h := newHarness(t)
	assert.Contains(t, h.exec.Execute(context.Background(), "print").Error, "usage: print")
	assert.Contains(t, h.exec.Execute(context.Background(), "print /no/such/bill.json").Error, "failed to load bill")
	assert.Contains(t, h.exec.Execute(context.Background(), "print "+writeBill(t)+" --choice laser").Error, "unknown printer choice")
}

func TestPrintFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bill/42" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, billJSON)
	}))
	defer srv.Close()

	h := newHarness(t)
	res := h.exec.Execute(context.Background(), "print "+srv.URL+"/bill/42 --choice html")
	require.True(t, res.Success, res.Error)

	res = h.exec.Execute(context.Background(), "print "+srv.URL+"/bill/43")
	assert.Contains(t, res.Error, "HTTP 404")
}

func TestRender(t *testing.T) {
	h := newHarness(t)
	path := writeBill(t)

	res := h.exec.Execute(context.Background(), "render text "+path)
	require.True(t, res.Success, res.Error)
	assert.Contains(t, res.Data["intent_uri"], "#Intent;scheme=rawbt;")

	res = h.exec.Execute(context.Background(), "render pos "+path)
	require.True(t, res.Success, res.Error)
	assert.NotEmpty(t, res.Data["base64"])

	res = h.exec.Execute(context.Background(), "render html "+path)
	require.True(t, res.Success, res.Error)
	assert.Contains(t, res.Data["html"], "Asha")

	res = h.exec.Execute(context.Background(), "render share "+path)
	require.True(t, res.Success, res.Error)
	assert.Contains(t, res.Data["link"], "https://wa.me/919898070258?text=")

	res = h.exec.Execute(context.Background(), "render pdf "+path)
	assert.Contains(t, res.Error, "unknown render format")
}

func TestPrinterCommands(t *testing.T) {
	h := newHarness(t)

	res := h.exec.Execute(context.Background(), "printer add-network 192.168.1.100")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "net-192.168.1.100-9100", res.Data["printer_id"])

	res = h.exec.Execute(context.Background(), "printer add-network 192.168.1.100 nope")
	assert.Contains(t, res.Error, "invalid port")

	res = h.exec.Execute(context.Background(), `printer rename p1 "Billing Counter"`)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "Billing Counter", h.printers.printers["p1"].Name)

	res = h.exec.Execute(context.Background(), "printer rename ghost x")
	assert.Contains(t, res.Error, "printer not found")

	res = h.exec.Execute(context.Background(), "printer list")
	require.True(t, res.Success)
	assert.Equal(t, "Found 2 printer(s)", res.Message)
}

func TestJobCommands(t *testing.T) {
	h := newHarness(t)
	h.exec.Execute(context.Background(), "print "+writeBill(t)+" --printer p1")

	res := h.exec.Execute(context.Background(), "job status job-1")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "Job job-1 is queued", res.Message)

	assert.Contains(t, h.exec.Execute(context.Background(), "job status job-9").Error, "job not found")
	assert.Equal(t, "Found 1 job(s)", h.exec.Execute(context.Background(), "job list").Message)
	assert.True(t, h.exec.Execute(context.Background(), "job clear").Success)
}

func TestDetectAndChoice(t *testing.T) {
	h := newHarness(t)

	res := h.exec.Execute(context.Background(), "detect")
	require.True(t, res.Success)
	assert.Equal(t, 1, h.printers.detected)

	res = h.exec.Execute(context.Background(), "choice")
	assert.Equal(t, printing.ChoiceHTML, res.Data["choice"])

	res = h.exec.Execute(context.Background(), "choice POS")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "pos", h.settings.choice)

	res = h.exec.Execute(context.Background(), "choice laser")
	assert.False(t, res.Success)
}

func TestRawCommandsDisabled(t *testing.T) {
	exec := NewExecutor(Deps{})
	for _, cmd := range []string{"printer list", "job list", "detect"} {
		res := exec.Execute(context.Background(), cmd)
		assert.Equal(t, "raw printing is disabled", res.Error, cmd)
	}
}
