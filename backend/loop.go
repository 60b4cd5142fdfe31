// Package backend runs the orchestration core: one loop that fans in
// UI commands, bus signals, agent requests and timers, keeps the
// adapter bookkeeping, and feeds the client a single ordered event
// stream.
package backend

import (
	"time"

	"github.com/godbus/dbus/v5"

	"wlcontrol/bluez"
	"wlcontrol/common"
	"wlcontrol/iwd"
)

const btScanDuration = 30 * time.Second

// LoopEvent is one unit of work for the loop, whatever source it came
// from.
type LoopEvent interface{ isLoopEvent() }

type (
	btScanTimeout struct{}

	wifiPoweredChanged  struct{ powered bool }
	wifiScanningChanged struct{ scanning bool }
	wifiStateChanged    struct{ state string }

	passphraseRequest struct{ req iwd.PassphraseRequest }
	pairingRequest    struct{ req bluez.PairingRequest }

	btAdapterChanged struct{ changed map[string]dbus.Variant }
	btDeviceAdded struct {
		path   dbus.ObjectPath
		ifaces map[string]map[string]dbus.Variant
	}
	btDeviceRemoved struct{ path dbus.ObjectPath }
	btDeviceChanged struct{ address string }

	iwdDeviceAdded   struct{ path dbus.ObjectPath }
	iwdDeviceRemoved struct{ path dbus.ObjectPath }

	command        struct{ cmd common.Command }
	commandsClosed struct{}
)

func (btScanTimeout) isLoopEvent()       {}
func (wifiPoweredChanged) isLoopEvent()  {}
func (wifiScanningChanged) isLoopEvent() {}
func (wifiStateChanged) isLoopEvent()    {}
func (passphraseRequest) isLoopEvent()   {}
func (pairingRequest) isLoopEvent()      {}
func (btAdapterChanged) isLoopEvent()    {}
func (btDeviceAdded) isLoopEvent()       {}
func (btDeviceRemoved) isLoopEvent()     {}
func (btDeviceChanged) isLoopEvent()     {}
func (iwdDeviceAdded) isLoopEvent()      {}
func (iwdDeviceRemoved) isLoopEvent()    {}
func (command) isLoopEvent()             {}
func (commandsClosed) isLoopEvent()      {}

// EventStreams is the loop's source bundle plus the subscription state
// gating signal translation. A nil channel simply never fires, which is
// how absent subsystems fall out of the select.
type EventStreams struct {
	Commands   <-chan common.Command
	Passphrase <-chan iwd.PassphraseRequest
	Pairing    <-chan bluez.PairingRequest
	Signals    <-chan *dbus.Signal

	// Wifi gating: which adapter we listen to, and whether its station
	// interface is live.
	WifiDevice dbus.ObjectPath
	StationUp  bool

	// Bluetooth gating: the adapter, whether its signals are live, the
	// discovery flag, and the set of devices with live subscriptions.
	BtAdapter   dbus.ObjectPath
	BtUp        bool
	Discovering bool
	Tracked     map[string]struct{}

	scanTimer *time.Timer
}

// Next blocks until a loop event arrives. Signals that the gating
// state rules out are swallowed here so stale traffic never reaches
// the handlers.
func (s *EventStreams) Next() LoopEvent {
	for {
		var deadline <-chan time.Time
		if s.scanTimer != nil {
			deadline = s.scanTimer.C
		}

		select {
		case <-deadline:
			s.scanTimer = nil
			return btScanTimeout{}

		case req := <-s.Passphrase:
			return passphraseRequest{req}

		case req := <-s.Pairing:
			return pairingRequest{req}

		case sig := <-s.Signals:
			if ev, ok := s.translate(sig); ok {
				return ev
			}

		case cmd, ok := <-s.Commands:
			if !ok {
				return commandsClosed{}
			}
			return command{cmd}
		}
	}
}

// StartScanDeadline arms the discovery timeout.
func (s *EventStreams) StartScanDeadline() {
	s.ClearScanDeadline()
	s.scanTimer = time.NewTimer(btScanDuration)
}

// ClearScanDeadline disarms the discovery timeout.
func (s *EventStreams) ClearScanDeadline() {
	if s.scanTimer != nil {
		s.scanTimer.Stop()
		s.scanTimer = nil
	}
}

// IsTracked reports whether the device has a live subscription.
func (s *EventStreams) IsTracked(addr string) bool {
	_, ok := s.Tracked[addr]
	return ok
}

// Track marks the device as subscribed.
func (s *EventStreams) Track(addr string) {
	if s.Tracked == nil {
		s.Tracked = make(map[string]struct{})
	}
	s.Tracked[addr] = struct{}{}
}

// Untrack drops the device subscription.
func (s *EventStreams) Untrack(addr string) {
	delete(s.Tracked, addr)
}

// translate turns a raw bus signal into a loop event, or drops it.
func (s *EventStreams) translate(sig *dbus.Signal) (LoopEvent, bool) {
	if sig == nil {
		return nil, false
	}

	switch sig.Name {
	case "org.freedesktop.DBus.Properties.PropertiesChanged":
		return s.translatePropsChanged(sig)

	case "org.freedesktop.DBus.ObjectManager.InterfacesAdded":
		if len(sig.Body) < 2 {
			return nil, false
		}
		path, _ := sig.Body[0].(dbus.ObjectPath)
		ifaces, _ := sig.Body[1].(map[string]map[string]dbus.Variant)
		if _, ok := ifaces[iwd.DeviceIF]; ok {
			return iwdDeviceAdded{path}, true
		}
		if _, ok := ifaces[bluez.DeviceIF]; ok && s.BtUp {
			return btDeviceAdded{path: path, ifaces: ifaces}, true
		}

	case "org.freedesktop.DBus.ObjectManager.InterfacesRemoved":
		if len(sig.Body) < 2 {
			return nil, false
		}
		path, _ := sig.Body[0].(dbus.ObjectPath)
		names, _ := sig.Body[1].([]string)
		for _, n := range names {
			switch {
			case n == iwd.DeviceIF:
				return iwdDeviceRemoved{path}, true
			case n == bluez.DeviceIF && s.BtUp:
				return btDeviceRemoved{path}, true
			}
		}
	}
	return nil, false
}

func (s *EventStreams) translatePropsChanged(sig *dbus.Signal) (LoopEvent, bool) {
	if len(sig.Body) < 2 {
		return nil, false
	}
	iface, _ := sig.Body[0].(string)
	changed, _ := sig.Body[1].(map[string]dbus.Variant)

	switch iface {
	case iwd.DeviceIF:
		if sig.Path != s.WifiDevice || s.WifiDevice == "" {
			return nil, false
		}
		if v, ok := changed["Powered"]; ok {
			if on, ok := v.Value().(bool); ok {
				return wifiPoweredChanged{on}, true
			}
		}

	case iwd.StationIF:
		if sig.Path != s.WifiDevice || !s.StationUp {
			return nil, false
		}
		if v, ok := changed["Scanning"]; ok {
			if on, ok := v.Value().(bool); ok {
				return wifiScanningChanged{on}, true
			}
		}
		if v, ok := changed["State"]; ok {
			if state, ok := v.Value().(string); ok {
				return wifiStateChanged{state}, true
			}
		}

	case bluez.AdapterIF:
		if sig.Path != s.BtAdapter || !s.BtUp {
			return nil, false
		}
		return btAdapterChanged{changed}, true

	case bluez.DeviceIF, bluez.BatteryIF:
		addr := bluez.AddressFromPath(sig.Path)
		if addr == "" || !s.IsTracked(addr) {
			return nil, false
		}
		return btDeviceChanged{addr}, true
	}
	return nil, false
}
