package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCharacteristic struct {
	mu     sync.Mutex
	writes [][]byte
	failAt int // 1-based write to fail; 0 never fails
	mtu    int
}

func (c *recordingCharacteristic) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failAt > 0 && len(c.writes)+1 == c.failAt {
		return 0, errors.New("gatt write rejected")
	}
	c.writes = append(c.writes, append([]byte(nil), p...))
	return len(p), nil
}

type mtuCharacteristic struct {
	*recordingCharacteristic
}

func (c mtuCharacteristic) MTU() (int, error) { return c.mtu, nil }

type fakeDevice struct {
	char         Characteristic
	disconnected bool
}

func (d *fakeDevice) Characteristic(ctx context.Context, service, characteristic string) (Characteristic, error) {
	return d.char, nil
}

func (d *fakeDevice) Disconnect() error {
	d.disconnected = true
	return nil
}

type fakeAdapter struct {
	enableErr  error
	requestErr error
	device     *fakeDevice
	service    string
}

func (a *fakeAdapter) Enable() error { return a.enableErr }

func (a *fakeAdapter) RequestDevice(ctx context.Context, service string) (Device, error) {
	a.service = service
	if a.requestErr != nil {
		return nil, a.requestErr
	}
	return a.device, nil
}

type memoryArtifacts struct {
	saved map[string][]byte
}

func (m *memoryArtifacts) Save(name string, data []byte) (string, error) {
	if m.saved == nil {
		m.saved = make(map[string][]byte)
	}
	m.saved[name] = data
	return name, nil
}

func payloadOf(n int) []byte {
	return bytes.Repeat([]byte{'x'}, n)
}

func TestWriteChunks_Sequential(t *testing.T) {
	char := &recordingCharacteristic{}
	payload := payloadOf(1200)

	require.NoError(t, WriteChunks(context.Background(), char, payload, 512))

	require.Len(t, char.writes, 3)
	assert.Len(t, char.writes[0], 512)
	assert.Len(t, char.writes[1], 512)
	assert.Len(t, char.writes[2], 176)
	assert.Equal(t, payload, bytes.Join(char.writes, nil))
}

func TestWriteChunks_AbortsOnFailure(t *testing.T) {
	char := &recordingCharacteristic{failAt: 2}

	err := WriteChunks(context.Background(), char, payloadOf(1500), 512)

	var writeErr *WriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, 1, writeErr.Chunk)
	assert.Equal(t, 3, writeErr.Total)
	assert.Equal(t, 512, writeErr.Written)
	assert.Len(t, char.writes, 1, "no chunk may follow a failed write")
}

func TestWriteChunks_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	char := &recordingCharacteristic{}

	err := WriteChunks(ctx, char, payloadOf(10), 4)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, char.writes)
}

func TestWriteChunks_Empty(t *testing.T) {
	char := &recordingCharacteristic{}
	assert.NoError(t, WriteChunks(context.Background(), char, nil, 512))
	assert.Empty(t, char.writes)
}

func TestGATT_FallbackWithoutBluetooth(t *testing.T) {
	artifacts := &memoryArtifacts{}
	g := NewGATT(nil, StaticCapabilities{}, artifacts, GATTConfig{}, nil)

	delivery, err := g.Send(context.Background(), "bill 7", payloadOf(64))
	require.NoError(t, err)

	assert.Equal(t, MethodDownload, delivery.Method)
	assert.Equal(t, "bill-7.bin", delivery.Artifact)
	assert.Contains(t, delivery.Reason, ErrBluetoothUnavailable.Error())
	assert.Len(t, artifacts.saved["bill-7.bin"], 64)
}

func TestGATT_FallbackWhenCapabilityMissing(t *testing.T) {
	adapter := &fakeAdapter{device: &fakeDevice{char: &recordingCharacteristic{}}}
	artifacts := &memoryArtifacts{}
	g := NewGATT(adapter, StaticCapabilities{Bluetooth: false}, artifacts, GATTConfig{}, nil)

	delivery, err := g.Send(context.Background(), "bill-8", payloadOf(8))
	require.NoError(t, err)

	assert.Equal(t, MethodDownload, delivery.Method)
	assert.Empty(t, adapter.service, "adapter must not be touched")
}

func TestGATT_FallbackWhenEnableFails(t *testing.T) {
	adapter := &fakeAdapter{enableErr: errors.New("no adapter found")}
	g := NewGATT(adapter, StaticCapabilities{Bluetooth: true}, &memoryArtifacts{}, GATTConfig{}, nil)

	delivery, err := g.Send(context.Background(), "bill-9", payloadOf(8))
	require.NoError(t, err)
	assert.Equal(t, MethodDownload, delivery.Method)
	assert.Contains(t, delivery.Reason, "no adapter found")
}

func TestGATT_FallbackReasonWrappedOnce(t *testing.T) {
	adapter := &fakeAdapter{enableErr: fmt.Errorf("%w: adapter powered off", ErrBluetoothUnavailable)}
	g := NewGATT(adapter, StaticCapabilities{Bluetooth: true}, &memoryArtifacts{}, GATTConfig{}, nil)

	delivery, err := g.Send(context.Background(), "bill-9", payloadOf(8))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(delivery.Reason, ErrBluetoothUnavailable.Error()), delivery.Reason)
	assert.Contains(t, delivery.Reason, "adapter powered off")
}

func TestBluetoothCharacteristic_ReportsMTU(t *testing.T) {
	var char Characteristic = &bluetoothCharacteristic{}
	_, ok := char.(MTUReporter)
	assert.True(t, ok)
}

func TestGATT_NoArtifactStore(t *testing.T) {
	g := NewGATT(nil, nil, nil, GATTConfig{}, nil)

	_, err := g.Send(context.Background(), "bill-9", payloadOf(8))
	assert.ErrorIs(t, err, ErrBluetoothUnavailable)
}

func TestGATT_WritesChunks(t *testing.T) {
	char := &recordingCharacteristic{}
	device := &fakeDevice{char: char}
	adapter := &fakeAdapter{device: device}
	g := NewGATT(adapter, StaticCapabilities{Bluetooth: true}, &memoryArtifacts{}, GATTConfig{}, nil)

	delivery, err := g.Send(context.Background(), "bill-7", payloadOf(1030))
	require.NoError(t, err)

	assert.Equal(t, MethodBluetooth, delivery.Method)
	assert.Equal(t, 3, delivery.Chunks)
	assert.Equal(t, 1030, delivery.Bytes)
	assert.Equal(t, DefaultServiceUUID, adapter.service)
	assert.True(t, device.disconnected)
}

func TestGATT_UsesNegotiatedMTU(t *testing.T) {
	char := mtuCharacteristic{&recordingCharacteristic{mtu: 23}}
	adapter := &fakeAdapter{device: &fakeDevice{char: char}}
	g := NewGATT(adapter, StaticCapabilities{Bluetooth: true}, nil, GATTConfig{}, nil)

	delivery, err := g.Send(context.Background(), "bill-7", payloadOf(100))
	require.NoError(t, err)

	assert.Equal(t, 5, delivery.Chunks)
	assert.Len(t, char.writes[0], 20)
}

func TestGATT_SelectionCancelled(t *testing.T) {
	adapter := &fakeAdapter{requestErr: ErrDeviceSelectionCancelled}
	artifacts := &memoryArtifacts{}
	g := NewGATT(adapter, StaticCapabilities{Bluetooth: true}, artifacts, GATTConfig{}, nil)

	delivery, err := g.Send(context.Background(), "bill-7", payloadOf(8))

	assert.Nil(t, delivery)
	assert.ErrorIs(t, err, ErrDeviceSelectionCancelled)
	assert.Empty(t, artifacts.saved, "a cancelled picker is not a missing adapter")
}

func TestGATT_WriteFailure(t *testing.T) {
	char := &recordingCharacteristic{failAt: 1}
	device := &fakeDevice{char: char}
	g := NewGATT(&fakeAdapter{device: device}, StaticCapabilities{Bluetooth: true}, nil, GATTConfig{}, nil)

	_, err := g.Send(context.Background(), "bill-7", payloadOf(8))

	var writeErr *WriteError
	assert.ErrorAs(t, err, &writeErr)
	assert.True(t, device.disconnected)
}

type recordingNavigator struct {
	uris []string
	err  error
}

func (n *recordingNavigator) Navigate(uri string) error {
	n.uris = append(n.uris, uri)
	return n.err
}

func TestIntent_Send(t *testing.T) {
	nav := &recordingNavigator{}
	intent := NewIntent(nav, nil)

	require.NoError(t, intent.Send("intent:%1B%40#Intent;end;"))
	assert.Equal(t, []string{"intent:%1B%40#Intent;end;"}, nav.uris)
}

func TestIntent_LaunchFailure(t *testing.T) {
	intent := NewIntent(&recordingNavigator{err: errors.New("no handler")}, nil)
	assert.EqualError(t, intent.Send("intent:x"), "no handler")
}

func TestIntent_NoNavigator(t *testing.T) {
	assert.ErrorIs(t, NewIntent(nil, nil).Send("intent:x"), ErrNoNavigator)
}

func TestNavigatorFunc(t *testing.T) {
	var got string
	nav := NavigatorFunc(func(uri string) error {
		got = uri
		return nil
	})

	require.NoError(t, NewIntent(nav, nil).Send("intent:y"))
	assert.Equal(t, "intent:y", got)
}

type fakeSurface struct {
	loaded   Document
	printErr error
	loadErr  error
	printed  bool
	closed   bool
}

func (s *fakeSurface) Load(ctx context.Context, doc Document) error {
	s.loaded = doc
	return s.loadErr
}

func (s *fakeSurface) Print(ctx context.Context) error {
	s.printed = true
	return s.printErr
}

func (s *fakeSurface) Close() error {
	s.closed = true
	return nil
}

func openerFor(s *fakeSurface) SurfaceOpener {
	return func(ctx context.Context) (Surface, error) { return s, nil }
}

func TestDialog_Print(t *testing.T) {
	surface := &fakeSurface{}
	d := NewDialog(openerFor(surface), DialogOptions{}, nil)

	require.NoError(t, d.Print(context.Background(), Document{Name: "bill-7", HTML: "<p>hi</p>"}))

	assert.Equal(t, "<p>hi</p>", surface.loaded.HTML)
	assert.True(t, surface.printed)
	assert.True(t, surface.closed)
}

func TestDialog_CancelIsSilent(t *testing.T) {
	surface := &fakeSurface{printErr: ErrPrintCancelled}
	d := NewDialog(openerFor(surface), DialogOptions{}, nil)

	assert.NoError(t, d.Print(context.Background(), Document{Name: "bill-7"}))
	assert.True(t, surface.closed)
}

func TestDialog_CancelWhileSettling(t *testing.T) {
	surface := &fakeSurface{}
	d := NewDialog(openerFor(surface), DialogOptions{Settle: time.Hour}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, d.Print(ctx, Document{Name: "bill-7"}))
	assert.False(t, surface.printed)
	assert.True(t, surface.closed)
}

func TestDialog_Failures(t *testing.T) {
	surface := &fakeSurface{loadErr: errors.New("renderer crashed")}
	d := NewDialog(openerFor(surface), DialogOptions{}, nil)

	err := d.Print(context.Background(), Document{Name: "bill-7"})
	assert.ErrorContains(t, err, "renderer crashed")
	assert.False(t, surface.printed)
	assert.True(t, surface.closed)

	surface = &fakeSurface{printErr: errors.New("printer offline")}
	d = NewDialog(openerFor(surface), DialogOptions{}, nil)
	assert.ErrorContains(t, d.Print(context.Background(), Document{}), "printer offline")

	d = NewDialog(func(ctx context.Context) (Surface, error) { return nil, errors.New("no chrome") }, DialogOptions{}, nil)
	assert.ErrorContains(t, d.Print(context.Background(), Document{}), "no chrome")
}

func TestDirArtifacts(t *testing.T) {
	store := DirArtifacts{Dir: filepath.Join(t.TempDir(), "artifacts")}

	name, err := store.Save("bill-7.bin", []byte{0x1B, '@'})
	require.NoError(t, err)

	path, err := store.Open(name)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x1B, '@'}, data)

	_, err = store.Open("../secret")
	assert.Error(t, err)
	_, err = store.Open("missing.bin")
	assert.Error(t, err)
}

func TestArtifactName(t *testing.T) {
	assert.Equal(t, "bill-7.bin", ArtifactName("bill-7"))
	assert.Equal(t, "bill-UM-12.bin", ArtifactName("bill UM/12"))
	assert.Equal(t, "receipt.bin", ArtifactName("../"))
}

func TestFromUserAgent(t *testing.T) {
	assert.True(t, FromUserAgent("Mozilla/5.0 (Linux; Android 14; Pixel 8)", false).Mobile())
	assert.False(t, FromUserAgent("Mozilla/5.0 (X11; Linux x86_64)", true).Mobile())
	assert.True(t, FromUserAgent("", true).BluetoothAvailable())
}

func TestPaperInches(t *testing.T) {
	assert.InDelta(t, 58/25.4, paperInches("58mm"), 1e-9)
	assert.InDelta(t, 80/25.4, paperInches("80mm"), 1e-9)
	assert.InDelta(t, 58/25.4, paperInches("wide"), 1e-9)
}
