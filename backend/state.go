package backend

import (
	"context"

	"github.com/godbus/dbus/v5"

	"wlcontrol/bluez"
	"wlcontrol/common"
	"wlcontrol/iwd"
)

// LoopAction tells the loop whether to keep running.
type LoopAction int

const (
	Continue LoopAction = iota
	Break
)

// WifiController is the station surface the loop drives. Satisfied by
// *iwd.Backend; narrowed to an interface so the loop is testable
// without a bus.
type WifiController interface {
	Device() dbus.ObjectPath
	SetDevice(path dbus.ObjectPath)
	Devices() ([]common.DeviceInfo, error)
	PickDevice(devices []common.DeviceInfo) dbus.ObjectPath

	Powered() (bool, error)
	SetPowered(on bool) error
	WaitForStation(ctx context.Context) error
	Scanning() (bool, error)
	Scan() error

	ConnectedNetwork() dbus.ObjectPath
	Networks() ([]common.WifiNetworkData, error)
	KnownNetworks() ([]common.KnownNetworkData, error)
	NetworkName(path dbus.ObjectPath) string

	Connect(path dbus.ObjectPath)
	CancelConnect()
	Disconnect()
	Forget(path dbus.ObjectPath) error
	ForgetKnown(path dbus.ObjectPath) error
}

// BtController is the Bluetooth surface the loop drives. Satisfied by
// *bluez.Backend.
type BtController interface {
	Powered() (bool, error)
	SetPowered(on bool)
	Discoverable() (bool, error)
	SetDiscoverable(on bool)

	StartDiscovery() error
	StopDiscovery() error

	Devices() ([]common.BtDeviceData, error)
	ReadDevice(addr string) (common.BtDeviceData, error)

	Connect(addr string)
	Disconnect(addr string)
	Pair(addr string)
	Remove(addr string)
	SetAlias(addr, alias string) error
	SetTrusted(addr string, trusted bool) error
}

// BackendState is the loop's bookkeeping: the two subsystem
// controllers (nil when the daemon is absent) and the pending reply
// slots for agent interactions. At most one reply per category is
// outstanding.
type BackendState struct {
	Wifi WifiController
	Bt   BtController

	emit func(common.Event)
	log  common.Logger

	wifiDevices []common.DeviceInfo

	pendingPassphrase chan string
	pendingPairing    chan bluez.PairingReply
	pendingPin        chan bluez.PairingReply
	pendingPasskey    chan bluez.PairingReply
}

// NewBackendState wires the bookkeeping for a fresh loop.
func NewBackendState(wifi WifiController, bt BtController, emit func(common.Event)) *BackendState {
	return &BackendState{
		Wifi: wifi,
		Bt:   bt,
		emit: emit,
		log:  common.GetLogger().ChildLogger(map[string]interface{}{"mod": "loop"}),
	}
}

// HandleEvent advances the loop by one event.
func (st *BackendState) HandleEvent(event LoopEvent, streams *EventStreams) LoopAction {
	switch ev := event.(type) {
	case btScanTimeout:
		st.log.Info("bluetooth discovery timeout, stopping scan")
		if streams.Discovering {
			streams.Discovering = false
			if st.Bt != nil {
				if err := st.Bt.StopDiscovery(); err != nil {
					st.log.Warnf("stopping discovery: %v", err)
				}
			}
			st.emit(common.BtDiscovering{Discovering: false})
		}
		streams.ClearScanDeadline()

	case wifiPoweredChanged:
		st.log.Infof("wifi adapter powered: %v", ev.powered)
		st.emit(common.WifiPowered{Powered: ev.powered})
		if st.Wifi == nil {
			break
		}
		if ev.powered {
			st.bringUpStation(streams)
		} else {
			streams.StationUp = false
			st.emit(common.WifiNetworks{})
		}

	case wifiScanningChanged:
		st.emit(common.WifiScanning{Scanning: ev.scanning})
		if !ev.scanning {
			st.sendNetworks()
			st.sendKnownNetworks()
		}

	case wifiStateChanged:
		st.log.Infof("station state: %s", ev.state)
		if st.Wifi != nil {
			st.emit(common.WifiConnected{Path: st.Wifi.ConnectedNetwork()})
		}

	case passphraseRequest:
		st.handlePassphraseRequest(ev.req)

	case pairingRequest:
		st.handlePairingRequest(ev.req)

	case btAdapterChanged:
		if v, ok := ev.changed["Powered"]; ok {
			if on, ok := v.Value().(bool); ok {
				st.emit(common.BtPowered{Powered: on})
			}
		}
		if v, ok := ev.changed["Discoverable"]; ok {
			if on, ok := v.Value().(bool); ok {
				st.emit(common.BtDiscoverable{Discoverable: on})
			}
		}

	case btDeviceAdded:
		st.handleBtDeviceAdded(ev, streams)

	case btDeviceRemoved:
		st.handleBtDeviceRemoved(ev.path, streams)

	case btDeviceChanged:
		if st.Bt == nil {
			break
		}
		if data, err := st.Bt.ReadDevice(ev.address); err == nil {
			st.emit(common.BtDeviceChanged{Device: data})
		}

	case iwdDeviceAdded:
		st.log.Infof("wifi adapter added: %s", ev.path)
		st.refreshWifiDevices()

	case iwdDeviceRemoved:
		st.handleWifiDeviceRemoved(ev.path, streams)

	case command:
		return st.handleCommand(ev.cmd, streams)

	case commandsClosed:
		return Break
	}
	return Continue
}

func (st *BackendState) handleCommand(cmd common.Command, streams *EventStreams) LoopAction {
	switch c := cmd.(type) {
	case common.Shutdown:
		st.log.Info("shutdown requested")
		if st.Wifi != nil {
			st.Wifi.CancelConnect()
		}
		if streams.Discovering && st.Bt != nil {
			streams.Discovering = false
			_ = st.Bt.StopDiscovery()
		}
		streams.ClearScanDeadline()
		return Break

	case common.PassphraseResponse:
		if st.pendingPassphrase == nil {
			break
		}
		if c.Cancel {
			close(st.pendingPassphrase)
		} else {
			st.pendingPassphrase <- c.Passphrase
		}
		st.pendingPassphrase = nil

	case common.WifiScan:
		// Scanning needs a station interface. Before one is up the
		// request has nothing to act on and is dropped silently.
		if st.Wifi != nil && streams.StationUp {
			if err := st.Wifi.Scan(); err != nil {
				st.emit(common.WifiError{Message: err.Error()})
			}
		}

	case common.WifiConnect:
		if st.Wifi != nil {
			st.Wifi.Connect(c.Path)
		}

	case common.WifiDisconnect:
		if st.Wifi != nil {
			st.Wifi.Disconnect()
		}

	case common.WifiForget:
		if st.Wifi != nil {
			if err := st.Wifi.Forget(c.Path); err != nil {
				st.emit(common.WifiError{Message: iwd.TranslateError(err)})
				break
			}
			st.sendNetworks()
			st.sendKnownNetworks()
		}

	case common.WifiForgetKnown:
		if st.Wifi != nil {
			if err := st.Wifi.ForgetKnown(c.Path); err != nil {
				st.emit(common.WifiError{Message: iwd.TranslateError(err)})
				break
			}
			st.sendNetworks()
			st.sendKnownNetworks()
		}

	case common.WifiSetPowered:
		if st.Wifi != nil {
			if err := st.Wifi.SetPowered(c.Powered); err != nil {
				st.emit(common.WifiError{Message: iwd.TranslateError(err)})
			}
		}

	case common.WifiSwitchAdapter:
		st.switchWifiAdapter(c.Path, streams)

	case common.BtScan:
		if streams.Discovering || st.Bt == nil {
			break
		}
		if err := st.Bt.StartDiscovery(); err != nil {
			st.emit(common.BtError{Message: err.Error()})
			break
		}
		streams.Discovering = true
		streams.StartScanDeadline()
		st.emit(common.BtDiscovering{Discovering: true})

	case common.BtStopScan:
		if !streams.Discovering || st.Bt == nil {
			break
		}
		streams.Discovering = false
		streams.ClearScanDeadline()
		if err := st.Bt.StopDiscovery(); err != nil {
			st.log.Warnf("stopping discovery: %v", err)
		}
		st.emit(common.BtDiscovering{Discovering: false})
		st.rebuildBtTracking(streams)

	case common.BtConnect:
		if st.Bt != nil {
			st.Bt.Connect(c.Address)
		}

	case common.BtDisconnect:
		if st.Bt != nil {
			st.Bt.Disconnect(c.Address)
		}

	case common.BtPair:
		if st.Bt != nil {
			st.Bt.Pair(c.Address)
		}

	case common.BtRemove:
		if st.Bt != nil {
			st.Bt.Remove(c.Address)
		}

	case common.BtSetAlias:
		if st.Bt != nil {
			if err := st.Bt.SetAlias(c.Address, c.Alias); err != nil {
				st.emit(common.BtError{Message: bluez.TranslateError(err)})
			}
		}

	case common.BtSetTrusted:
		if st.Bt != nil {
			if err := st.Bt.SetTrusted(c.Address, c.Trusted); err != nil {
				st.emit(common.BtError{Message: bluez.TranslateError(err)})
			}
		}

	case common.BtSetPowered:
		st.setBtPowered(c.Powered, streams)

	case common.BtSetDiscoverable:
		if st.Bt != nil {
			st.Bt.SetDiscoverable(c.Discoverable)
		}

	case common.BtPairingResponse:
		if st.pendingPairing != nil {
			st.pendingPairing <- bluez.PairingReply{Accept: c.Accept}
			st.pendingPairing = nil
		}

	case common.BtPairingPinResponse:
		if st.pendingPin != nil {
			if c.Cancel {
				close(st.pendingPin)
			} else {
				st.pendingPin <- bluez.PairingReply{Accept: true, Pin: c.Pin}
			}
			st.pendingPin = nil
		}

	case common.BtPairingPasskeyResponse:
		if st.pendingPasskey != nil {
			if c.Cancel {
				close(st.pendingPasskey)
			} else {
				st.pendingPasskey <- bluez.PairingReply{Accept: true, Passkey: c.Passkey}
			}
			st.pendingPasskey = nil
		}
	}
	return Continue
}

func (st *BackendState) handlePassphraseRequest(req iwd.PassphraseRequest) {
	name := ""
	if st.Wifi != nil {
		name = st.Wifi.NetworkName(req.Network)
	}
	st.log.Infof("passphrase request for %s", name)

	if st.pendingPassphrase != nil {
		// The daemon never overlaps requests; drop the orphan so its
		// blocked call fails instead of hanging.
		close(st.pendingPassphrase)
	}
	st.pendingPassphrase = req.Reply

	st.emit(common.PassphraseRequest{Path: req.Network, Name: name})
}

func (st *BackendState) handlePairingRequest(req bluez.PairingRequest) {
	st.log.Infof("bt pairing %s for %s", req.Kind, req.Address)

	switch req.Kind {
	case common.PairingConfirm, common.PairingAuthorize:
		if st.pendingPairing != nil {
			close(st.pendingPairing)
		}
		st.pendingPairing = req.Reply
	case common.PairingRequestPin:
		if st.pendingPin != nil {
			close(st.pendingPin)
		}
		st.pendingPin = req.Reply
	case common.PairingRequestPasskey:
		if st.pendingPasskey != nil {
			close(st.pendingPasskey)
		}
		st.pendingPasskey = req.Reply
	}

	st.emit(common.BtPairing{Kind: req.Kind, Address: req.Address, Code: req.Code})
}

func (st *BackendState) handleBtDeviceAdded(ev btDeviceAdded, streams *EventStreams) {
	data, ok := bluez.DeviceFromProps(ev.ifaces)
	if !ok || bluez.IsNoise(data) {
		return
	}
	streams.Track(data.Address)
	st.emit(common.BtDeviceAdded{Device: data})
}

// handleBtDeviceRemoved reconciles a removal signal against the
// daemon. The daemon fires removals for paired devices during
// discovery cleanup; if the device still exists and is paired the
// entry must survive as an update, not vanish.
func (st *BackendState) handleBtDeviceRemoved(path dbus.ObjectPath, streams *EventStreams) {
	addr := bluez.AddressFromPath(path)
	if addr == "" {
		return
	}
	streams.Untrack(addr)

	if st.Bt != nil {
		if data, err := st.Bt.ReadDevice(addr); err == nil && data.Paired {
			streams.Track(addr)
			st.emit(common.BtDeviceChanged{Device: data})
			return
		}
	}
	st.emit(common.BtDeviceRemoved{Address: addr})
}

// rebuildBtTracking drops subscriptions for devices that disappeared
// while discovery ran.
func (st *BackendState) rebuildBtTracking(streams *EventStreams) {
	if st.Bt == nil {
		return
	}
	for addr := range streams.Tracked {
		if _, err := st.Bt.ReadDevice(addr); err != nil {
			streams.Untrack(addr)
		}
	}
}

// setBtPowered tears down everything scan-related before powering off,
// and replays the initial adapter state after powering on.
func (st *BackendState) setBtPowered(on bool, streams *EventStreams) {
	if st.Bt == nil {
		return
	}
	if !on {
		if streams.Discovering {
			streams.Discovering = false
			_ = st.Bt.StopDiscovery()
			st.emit(common.BtDiscovering{Discovering: false})
		}
		streams.ClearScanDeadline()
		streams.Tracked = nil
		streams.BtUp = false
	}

	st.Bt.SetPowered(on)

	if on {
		st.sendBtInitialState(streams)
		streams.BtUp = true
	}
}

// sendBtInitialState replays the adapter flags and the already paired
// or connected devices, subscribing to each.
func (st *BackendState) sendBtInitialState(streams *EventStreams) {
	if st.Bt == nil {
		return
	}
	if on, err := st.Bt.Powered(); err == nil {
		st.emit(common.BtPowered{Powered: on})
	}
	if on, err := st.Bt.Discoverable(); err == nil {
		st.emit(common.BtDiscoverable{Discoverable: on})
	}
	devices, err := st.Bt.Devices()
	if err != nil {
		st.log.Warnf("listing bt devices: %v", err)
		return
	}
	for _, d := range devices {
		if !d.Paired && !d.Connected {
			continue
		}
		streams.Track(d.Address)
		st.emit(common.BtDeviceAdded{Device: d})
	}
}

func (st *BackendState) sendNetworks() {
	if st.Wifi == nil {
		return
	}
	networks, err := st.Wifi.Networks()
	if err != nil {
		st.log.Warnf("listing networks: %v", err)
		return
	}
	st.emit(common.WifiNetworks{Networks: networks})
}

func (st *BackendState) sendKnownNetworks() {
	if st.Wifi == nil {
		return
	}
	known, err := st.Wifi.KnownNetworks()
	if err != nil {
		st.log.Warnf("listing known networks: %v", err)
		return
	}
	st.emit(common.WifiKnownNetworks{Networks: known})
}

// bringUpStation waits out the power-on race, then replays scanning
// state and both network lists.
func (st *BackendState) bringUpStation(streams *EventStreams) {
	if err := st.Wifi.WaitForStation(context.Background()); err != nil {
		st.log.Warnf("station never came up: %v", err)
		return
	}
	streams.StationUp = true
	if scanning, err := st.Wifi.Scanning(); err == nil {
		st.emit(common.WifiScanning{Scanning: scanning})
	}
	st.sendNetworks()
	st.sendKnownNetworks()
	st.emit(common.WifiConnected{Path: st.Wifi.ConnectedNetwork()})
}

// sendWifiInitialState replays the full adapter state for the active
// device: power, then station state when powered.
func (st *BackendState) sendWifiInitialState(streams *EventStreams) {
	if st.Wifi == nil {
		return
	}
	powered, err := st.Wifi.Powered()
	if err != nil {
		st.log.Warnf("reading adapter power: %v", err)
		return
	}
	st.emit(common.WifiPowered{Powered: powered})
	if powered {
		st.bringUpStation(streams)
	}
}

func (st *BackendState) refreshWifiDevices() {
	if st.Wifi == nil {
		return
	}
	devices, err := st.Wifi.Devices()
	if err != nil {
		st.log.Warnf("listing wifi adapters: %v", err)
		return
	}
	st.wifiDevices = devices
	st.emit(common.WifiDevices{Devices: devices, Active: st.Wifi.Device()})
}

// handleWifiDeviceRemoved reconciles adapter hot-unplug. Losing the
// active adapter fails over to the first remaining one, or reports
// WiFi down when none remain.
func (st *BackendState) handleWifiDeviceRemoved(path dbus.ObjectPath, streams *EventStreams) {
	st.log.Infof("wifi adapter removed: %s", path)
	if st.Wifi == nil {
		return
	}

	activeRemoved := st.Wifi.Device() == path

	devices, err := st.Wifi.Devices()
	if err != nil {
		st.log.Warnf("listing wifi adapters: %v", err)
		devices = nil
	}
	st.wifiDevices = devices

	if activeRemoved {
		if len(devices) > 0 {
			st.Wifi.SetDevice(devices[0].Path)
			streams.WifiDevice = devices[0].Path
			streams.StationUp = false
			st.sendWifiInitialState(streams)
		} else {
			st.Wifi.SetDevice("")
			streams.WifiDevice = ""
			streams.StationUp = false
			st.emit(common.WifiPowered{Powered: false})
			st.emit(common.WifiNetworks{})
		}
	}

	st.emit(common.WifiDevices{Devices: devices, Active: st.Wifi.Device()})
}

// switchWifiAdapter moves the backend to another adapter and replays
// its state.
func (st *BackendState) switchWifiAdapter(path dbus.ObjectPath, streams *EventStreams) {
	if st.Wifi == nil {
		return
	}
	st.log.Infof("switching wifi adapter to %s", path)

	st.Wifi.CancelConnect()
	st.Wifi.SetDevice(path)
	streams.WifiDevice = path
	streams.StationUp = false
	st.sendWifiInitialState(streams)
	st.emit(common.WifiDevices{Devices: st.wifiDevices, Active: path})
}
