package backend

import (
	"context"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"

	"wlcontrol/bluez"
	"wlcontrol/common"
	"wlcontrol/iwd"
)

type fakeWifi struct {
	device  dbus.ObjectPath
	devices []common.DeviceInfo
	powered bool

	connects    []dbus.ObjectPath
	cancelCount int
	scans       int
	scanErr     error
}

func (f *fakeWifi) Device() dbus.ObjectPath     { return f.device }
func (f *fakeWifi) SetDevice(p dbus.ObjectPath) { f.device = p }
func (f *fakeWifi) Devices() ([]common.DeviceInfo, error) {
	return f.devices, nil
}
func (f *fakeWifi) PickDevice(devices []common.DeviceInfo) dbus.ObjectPath {
	if len(devices) > 0 {
		return devices[0].Path
	}
	return ""
}
func (f *fakeWifi) Powered() (bool, error)               { return f.powered, nil }
func (f *fakeWifi) SetPowered(on bool) error             { f.powered = on; return nil }
func (f *fakeWifi) WaitForStation(context.Context) error { return nil }
func (f *fakeWifi) Scanning() (bool, error)              { return false, nil }
func (f *fakeWifi) Scan() error                          { f.scans++; return f.scanErr }
func (f *fakeWifi) ConnectedNetwork() dbus.ObjectPath    { return "" }
func (f *fakeWifi) Networks() ([]common.WifiNetworkData, error) {
	return nil, nil
}
func (f *fakeWifi) KnownNetworks() ([]common.KnownNetworkData, error) {
	return nil, nil
}
func (f *fakeWifi) NetworkName(p dbus.ObjectPath) string { return "testnet" }
func (f *fakeWifi) Connect(p dbus.ObjectPath)            { f.connects = append(f.connects, p) }
func (f *fakeWifi) CancelConnect()                       { f.cancelCount++ }
func (f *fakeWifi) Disconnect()                          {}
func (f *fakeWifi) Forget(dbus.ObjectPath) error         { return nil }
func (f *fakeWifi) ForgetKnown(dbus.ObjectPath) error    { return nil }

type fakeBt struct {
	powered      bool
	discoverable bool
	devices      map[string]common.BtDeviceData

	discovering bool
	stopCount   int
	startErr    error
}

func (f *fakeBt) Powered() (bool, error)      { return f.powered, nil }
func (f *fakeBt) SetPowered(on bool)          { f.powered = on }
func (f *fakeBt) Discoverable() (bool, error) { return f.discoverable, nil }
func (f *fakeBt) SetDiscoverable(on bool)     { f.discoverable = on }
func (f *fakeBt) StartDiscovery() error {
	if f.startErr != nil {
		return f.startErr
	}
	f.discovering = true
	return nil
}
func (f *fakeBt) StopDiscovery() error {
	f.discovering = false
	f.stopCount++
	return nil
}
func (f *fakeBt) Devices() ([]common.BtDeviceData, error) {
	var out []common.BtDeviceData
	for _, d := range f.devices {
		out = append(out, d)
	}
	return out, nil
}
func (f *fakeBt) ReadDevice(addr string) (common.BtDeviceData, error) {
	d, ok := f.devices[addr]
	if !ok {
		return common.BtDeviceData{}, errors.New("device no longer exists")
	}
	return d, nil
}
func (f *fakeBt) Connect(string)                {}
func (f *fakeBt) Disconnect(string)             {}
func (f *fakeBt) Pair(string)                   {}
func (f *fakeBt) Remove(string)                 {}
func (f *fakeBt) SetAlias(string, string) error { return nil }
func (f *fakeBt) SetTrusted(string, bool) error { return nil }

type harness struct {
	st      *BackendState
	streams *EventStreams
	wifi    *fakeWifi
	bt      *fakeBt
	events  []common.Event
}

func newHarness() *harness {
	h := &harness{
		wifi: &fakeWifi{},
		bt:   &fakeBt{devices: map[string]common.BtDeviceData{}},
	}
	h.st = NewBackendState(h.wifi, h.bt, func(e common.Event) {
		h.events = append(h.events, e)
	})
	h.streams = &EventStreams{Tracked: make(map[string]struct{})}
	return h
}

func (h *harness) eventsOf(match func(common.Event) bool) []common.Event {
	var out []common.Event
	for _, e := range h.events {
		if match(e) {
			out = append(out, e)
		}
	}
	return out
}

const addr = "AA:BB:CC:DD:EE:FF"

func devPath(a string) dbus.ObjectPath {
	return bluez.DevicePath("/org/bluez/hci0", a)
}

func TestCommandsWithoutSubsystemAreDropped(t *testing.T) {
	h := newHarness()
	h.st.Wifi = nil
	h.st.Bt = nil
	h.streams.StationUp = true

	h.st.handleCommand(common.WifiScan{}, h.streams)
	h.st.handleCommand(common.WifiConnect{Path: "/n/1"}, h.streams)
	h.st.handleCommand(common.BtScan{}, h.streams)
	h.st.handleCommand(common.BtConnect{Address: addr}, h.streams)

	if len(h.events) != 0 {
		t.Fatalf("degraded subsystems emitted events: %v", h.events)
	}
}

func TestWifiScanWaitsForStation(t *testing.T) {
	h := newHarness()
	h.wifi.scanErr = errors.New("no station interface")

	// Before a station interface exists the request has no target and
	// must vanish without an error event.
	h.st.handleCommand(common.WifiScan{}, h.streams)
	if h.wifi.scans != 0 {
		t.Fatal("scan issued before a station interface exists")
	}
	if len(h.events) != 0 {
		t.Fatalf("scan without a station emitted events: %v", h.events)
	}

	h.streams.StationUp = true
	h.st.handleCommand(common.WifiScan{}, h.streams)
	if h.wifi.scans != 1 {
		t.Fatalf("scan issued %d times with a station up, want 1", h.wifi.scans)
	}
	failures := h.eventsOf(func(e common.Event) bool {
		_, ok := e.(common.WifiError)
		return ok
	})
	if len(failures) != 1 {
		t.Fatalf("got %d WifiError events for a failed scan, want 1", len(failures))
	}
}

func TestScanTimeoutEmitsSingleDiscoveringFalse(t *testing.T) {
	h := newHarness()
	h.streams.Discovering = true
	h.streams.StartScanDeadline()

	h.st.HandleEvent(btScanTimeout{}, h.streams)

	stops := h.eventsOf(func(e common.Event) bool {
		d, ok := e.(common.BtDiscovering)
		return ok && !d.Discovering
	})
	if len(stops) != 1 {
		t.Fatalf("got %d BtDiscovering(false) events, want exactly 1", len(stops))
	}
	if h.bt.stopCount != 1 {
		t.Fatalf("discovery stopped %d times, want 1", h.bt.stopCount)
	}
	if h.streams.Discovering {
		t.Fatal("discovering flag still set")
	}

	// A second timeout with no scan running must stay silent.
	h.st.HandleEvent(btScanTimeout{}, h.streams)
	stops = h.eventsOf(func(e common.Event) bool {
		_, ok := e.(common.BtDiscovering)
		return ok
	})
	if len(stops) != 1 {
		t.Fatalf("spurious timeout emitted events: %v", stops)
	}
}

func TestStopScanClearsDeadline(t *testing.T) {
	h := newHarness()
	h.st.handleCommand(common.BtScan{}, h.streams)
	if !h.streams.Discovering || h.streams.scanTimer == nil {
		t.Fatal("scan did not arm discovery and deadline")
	}

	h.st.handleCommand(common.BtStopScan{}, h.streams)
	if h.streams.Discovering || h.streams.scanTimer != nil {
		t.Fatal("stop did not clear discovery and deadline")
	}
}

func TestScanWhileScanningIsNoop(t *testing.T) {
	h := newHarness()
	h.st.handleCommand(common.BtScan{}, h.streams)
	h.st.handleCommand(common.BtScan{}, h.streams)

	starts := h.eventsOf(func(e common.Event) bool {
		d, ok := e.(common.BtDiscovering)
		return ok && d.Discovering
	})
	if len(starts) != 1 {
		t.Fatalf("got %d BtDiscovering(true) events, want 1", len(starts))
	}
}

func TestDeviceRemovedWhilePairedBecomesChanged(t *testing.T) {
	h := newHarness()
	h.bt.devices[addr] = common.BtDeviceData{Address: addr, Name: "Buds", Paired: true}
	h.streams.Track(addr)

	h.st.HandleEvent(btDeviceRemoved{devPath(addr)}, h.streams)

	if !h.streams.IsTracked(addr) {
		t.Fatal("paired device was untracked")
	}
	if n := len(h.eventsOf(func(e common.Event) bool {
		_, ok := e.(common.BtDeviceChanged)
		return ok
	})); n != 1 {
		t.Fatalf("got %d BtDeviceChanged, want 1", n)
	}
	if n := len(h.eventsOf(func(e common.Event) bool {
		_, ok := e.(common.BtDeviceRemoved)
		return ok
	})); n != 0 {
		t.Fatal("paired device was reported removed")
	}
}

func TestDeviceRemovedWhenGoneIsRemoved(t *testing.T) {
	h := newHarness()
	h.streams.Track(addr)

	h.st.HandleEvent(btDeviceRemoved{devPath(addr)}, h.streams)

	if h.streams.IsTracked(addr) {
		t.Fatal("gone device still tracked")
	}
	removed := h.eventsOf(func(e common.Event) bool {
		r, ok := e.(common.BtDeviceRemoved)
		return ok && r.Address == addr
	})
	if len(removed) != 1 {
		t.Fatalf("got %d BtDeviceRemoved, want 1", len(removed))
	}
}

func TestBtPowerOffTearsDownScanState(t *testing.T) {
	h := newHarness()
	h.streams.BtUp = true
	h.streams.Discovering = true
	h.streams.StartScanDeadline()
	h.streams.Track(addr)

	h.st.handleCommand(common.BtSetPowered{Powered: false}, h.streams)

	if h.streams.Discovering || h.streams.scanTimer != nil {
		t.Fatal("power off left discovery state armed")
	}
	if len(h.streams.Tracked) != 0 {
		t.Fatal("power off left tracked devices")
	}
	if h.streams.BtUp {
		t.Fatal("power off left adapter signals live")
	}
	if h.bt.powered {
		t.Fatal("adapter was not powered off")
	}
}

func TestBtPowerOnReplaysInitialState(t *testing.T) {
	h := newHarness()
	h.bt.devices[addr] = common.BtDeviceData{Address: addr, Name: "Buds", Paired: true}
	h.bt.devices["11:22:33:44:55:66"] = common.BtDeviceData{Address: "11:22:33:44:55:66", Name: "Stray"}

	h.st.handleCommand(common.BtSetPowered{Powered: true}, h.streams)

	if !h.streams.BtUp {
		t.Fatal("power on did not arm adapter signals")
	}
	if !h.streams.IsTracked(addr) {
		t.Fatal("paired device not tracked after power on")
	}
	if h.streams.IsTracked("11:22:33:44:55:66") {
		t.Fatal("never-paired device tracked after power on")
	}
	added := h.eventsOf(func(e common.Event) bool {
		_, ok := e.(common.BtDeviceAdded)
		return ok
	})
	if len(added) != 1 {
		t.Fatalf("got %d BtDeviceAdded, want 1 (paired only)", len(added))
	}
}

func TestPassphraseSlotReplaceNotDuplicate(t *testing.T) {
	h := newHarness()

	first := make(chan string, 1)
	second := make(chan string, 1)
	h.st.HandleEvent(passphraseRequest{iwd.PassphraseRequest{Network: "/n/1", Reply: first}}, h.streams)
	h.st.HandleEvent(passphraseRequest{iwd.PassphraseRequest{Network: "/n/2", Reply: second}}, h.streams)

	// The orphaned first request must have been failed by closing it.
	select {
	case _, ok := <-first:
		if ok {
			t.Fatal("orphan slot got a value instead of being closed")
		}
	default:
		t.Fatal("orphan slot was not closed")
	}

	h.st.handleCommand(common.PassphraseResponse{Passphrase: "hunter2"}, h.streams)
	if got := <-second; got != "hunter2" {
		t.Fatalf("live slot got %q", got)
	}
	if h.st.pendingPassphrase != nil {
		t.Fatal("slot not vacated after response")
	}
}

func TestPassphraseResponseWithoutRequestIsIgnored(t *testing.T) {
	h := newHarness()
	h.st.handleCommand(common.PassphraseResponse{Passphrase: "x"}, h.streams)
	if len(h.events) != 0 {
		t.Fatalf("unexpected events: %v", h.events)
	}
}

func TestPairingReplySlotsPerCategory(t *testing.T) {
	h := newHarness()

	confirm := make(chan bluez.PairingReply, 1)
	pin := make(chan bluez.PairingReply, 1)
	h.st.HandleEvent(pairingRequest{bluez.PairingRequest{
		Kind: common.PairingConfirm, Address: addr, Code: "123456", Reply: confirm,
	}}, h.streams)
	h.st.HandleEvent(pairingRequest{bluez.PairingRequest{
		Kind: common.PairingRequestPin, Address: addr, Reply: pin,
	}}, h.streams)

	h.st.handleCommand(common.BtPairingResponse{Accept: true}, h.streams)
	if r := <-confirm; !r.Accept {
		t.Fatal("confirm slot did not receive accept")
	}

	h.st.handleCommand(common.BtPairingPinResponse{Pin: "0000"}, h.streams)
	if r := <-pin; r.Pin != "0000" {
		t.Fatalf("pin slot got %+v", r)
	}

	surfaced := h.eventsOf(func(e common.Event) bool {
		_, ok := e.(common.BtPairing)
		return ok
	})
	if len(surfaced) != 2 {
		t.Fatalf("got %d BtPairing events, want 2", len(surfaced))
	}
}

func TestActiveAdapterRemovedFailsOver(t *testing.T) {
	h := newHarness()
	h.wifi.device = "/iwd/0"
	h.wifi.devices = []common.DeviceInfo{{Path: "/iwd/1", Name: "wlan1"}}
	h.streams.WifiDevice = "/iwd/0"
	h.streams.StationUp = true

	h.st.HandleEvent(iwdDeviceRemoved{"/iwd/0"}, h.streams)

	if h.wifi.device != "/iwd/1" {
		t.Fatalf("backend on %v, want failover to /iwd/1", h.wifi.device)
	}
	if h.streams.WifiDevice != "/iwd/1" {
		t.Fatal("signal gating not moved to the new adapter")
	}
	inv := h.eventsOf(func(e common.Event) bool {
		_, ok := e.(common.WifiDevices)
		return ok
	})
	if len(inv) != 1 {
		t.Fatalf("got %d WifiDevices events, want 1", len(inv))
	}
	if got := inv[0].(common.WifiDevices).Active; got != "/iwd/1" {
		t.Fatalf("inventory reports active %v", got)
	}
}

func TestLastAdapterRemovedReportsDown(t *testing.T) {
	h := newHarness()
	h.wifi.device = "/iwd/0"
	h.streams.WifiDevice = "/iwd/0"
	h.streams.StationUp = true

	h.st.HandleEvent(iwdDeviceRemoved{"/iwd/0"}, h.streams)

	if h.streams.WifiDevice != "" || h.streams.StationUp {
		t.Fatal("gating state not cleared")
	}
	down := h.eventsOf(func(e common.Event) bool {
		p, ok := e.(common.WifiPowered)
		return ok && !p.Powered
	})
	if len(down) != 1 {
		t.Fatal("loss of last adapter did not report power down")
	}
}

func TestShutdownBreaksAndCancelsWork(t *testing.T) {
	h := newHarness()
	h.streams.Discovering = true
	h.streams.StartScanDeadline()

	if got := h.st.HandleEvent(command{common.Shutdown{}}, h.streams); got != Break {
		t.Fatal("shutdown did not break the loop")
	}
	if h.wifi.cancelCount != 1 {
		t.Fatal("shutdown did not cancel the in-flight connect")
	}
	if h.streams.scanTimer != nil {
		t.Fatal("shutdown left the scan deadline armed")
	}
}

func TestCommandChannelClosedBreaks(t *testing.T) {
	h := newHarness()
	if got := h.st.HandleEvent(commandsClosed{}, h.streams); got != Break {
		t.Fatal("closed command channel did not break the loop")
	}
}
