package common

import "github.com/godbus/dbus/v5"

// Command is a request sent by the client into the backend loop.
// Commands never block the sender; results come back as Events.
type Command interface{ isCommand() }

// Event is a state change reported by the backend loop. The client
// treats the event stream as the single source of truth.
type Event interface{ isEvent() }

// Wifi commands.
type (
	Shutdown          struct{}
	WifiScan          struct{}
	WifiConnect       struct{ Path dbus.ObjectPath }
	WifiDisconnect    struct{}
	WifiForget        struct{ Path dbus.ObjectPath }
	WifiForgetKnown   struct{ Path dbus.ObjectPath }
	WifiSetPowered    struct{ Powered bool }
	WifiSwitchAdapter struct{ Path dbus.ObjectPath }

	// PassphraseResponse answers an outstanding PassphraseRequest.
	// Cancel aborts the connection attempt instead.
	PassphraseResponse struct {
		Passphrase string
		Cancel     bool
	}
)

// Bluetooth commands. Device commands address devices by MAC.
type (
	BtScan            struct{}
	BtStopScan        struct{}
	BtConnect         struct{ Address string }
	BtDisconnect      struct{ Address string }
	BtPair            struct{ Address string }
	BtRemove          struct{ Address string }
	BtSetAlias        struct{ Address, Alias string }
	BtSetPowered      struct{ Powered bool }
	BtSetDiscoverable struct{ Discoverable bool }

	// BtSetTrusted pins or clears the trusted flag on a device.
	BtSetTrusted struct {
		Address string
		Trusted bool
	}

	// BtPairingResponse answers a confirm or authorize request.
	BtPairingResponse struct{ Accept bool }

	// BtPairingPinResponse answers a PIN code request; Cancel rejects it.
	BtPairingPinResponse struct {
		Pin    string
		Cancel bool
	}

	// BtPairingPasskeyResponse answers a numeric passkey request.
	BtPairingPasskeyResponse struct {
		Passkey uint32
		Cancel  bool
	}
)

func (Shutdown) isCommand()                 {}
func (WifiScan) isCommand()                 {}
func (WifiConnect) isCommand()              {}
func (WifiDisconnect) isCommand()           {}
func (WifiForget) isCommand()               {}
func (WifiForgetKnown) isCommand()          {}
func (WifiSetPowered) isCommand()           {}
func (WifiSwitchAdapter) isCommand()        {}
func (PassphraseResponse) isCommand()       {}
func (BtScan) isCommand()                   {}
func (BtStopScan) isCommand()               {}
func (BtConnect) isCommand()                {}
func (BtDisconnect) isCommand()             {}
func (BtPair) isCommand()                   {}
func (BtRemove) isCommand()                 {}
func (BtSetAlias) isCommand()               {}
func (BtSetTrusted) isCommand()             {}
func (BtSetPowered) isCommand()             {}
func (BtSetDiscoverable) isCommand()        {}
func (BtPairingResponse) isCommand()        {}
func (BtPairingPinResponse) isCommand()     {}
func (BtPairingPasskeyResponse) isCommand() {}

// Wifi events.
type (
	WifiAvailable struct{ Available bool }

	// WifiDevices reports the wireless adapter inventory and which
	// adapter the backend currently drives.
	WifiDevices struct {
		Devices []DeviceInfo
		Active  dbus.ObjectPath
	}

	WifiPowered  struct{ Powered bool }
	WifiScanning struct{ Scanning bool }
	WifiNetworks struct{ Networks []WifiNetworkData }

	// WifiConnected carries the connected network path, or "" when
	// the station is disconnected.
	WifiConnected  struct{ Path dbus.ObjectPath }
	WifiConnecting struct{ Path dbus.ObjectPath }

	WifiNetworkKnown struct {
		Path  dbus.ObjectPath
		Known bool
	}
	WifiKnownNetworks struct{ Networks []KnownNetworkData }

	// PassphraseRequest asks the client for the credentials of the
	// network being connected. Exactly one may be outstanding.
	PassphraseRequest struct {
		Path dbus.ObjectPath
		Name string
	}

	CaptivePortal struct{ URL string }
	WifiError     struct{ Message string }
)

// Bluetooth events.
type (
	BtAvailable    struct{ Available bool }
	BtPowered      struct{ Powered bool }
	BtDiscovering  struct{ Discovering bool }
	BtDiscoverable struct{ Discoverable bool }
	BtConnecting   struct{ Address string }

	BtDeviceAdded   struct{ Device BtDeviceData }
	BtDeviceChanged struct{ Device BtDeviceData }
	BtDeviceRemoved struct{ Address string }

	// BtOperationDone reports the settled outcome of a connect or
	// disconnect, with the device state re-read from the daemon.
	// Error is "" on success.
	BtOperationDone struct {
		Device BtDeviceData
		Error  string
	}

	// BtPairing surfaces an agent interaction. Code carries the
	// zero-padded passkey or PIN for display/confirm kinds.
	BtPairing struct {
		Kind    PairingKind
		Address string
		Code    string
	}

	BtError struct{ Message string }
)

func (WifiAvailable) isEvent()     {}
func (WifiDevices) isEvent()       {}
func (WifiPowered) isEvent()       {}
func (WifiScanning) isEvent()      {}
func (WifiNetworks) isEvent()      {}
func (WifiConnected) isEvent()     {}
func (WifiConnecting) isEvent()    {}
func (WifiNetworkKnown) isEvent()  {}
func (WifiKnownNetworks) isEvent() {}
func (PassphraseRequest) isEvent() {}
func (CaptivePortal) isEvent()     {}
func (WifiError) isEvent()         {}
func (BtAvailable) isEvent()       {}
func (BtPowered) isEvent()         {}
func (BtDiscovering) isEvent()     {}
func (BtDiscoverable) isEvent()    {}
func (BtConnecting) isEvent()      {}
func (BtDeviceAdded) isEvent()     {}
func (BtDeviceChanged) isEvent()   {}
func (BtDeviceRemoved) isEvent()   {}
func (BtOperationDone) isEvent()   {}
func (BtPairing) isEvent()         {}
func (BtError) isEvent()           {}

// PairingKind names the agent interaction being requested.
type PairingKind int

const (
	PairingConfirm PairingKind = iota
	PairingAuthorize
	PairingRequestPin
	PairingRequestPasskey
	PairingDisplayPin
	PairingDisplayPasskey
)

func (k PairingKind) String() string {
	switch k {
	case PairingConfirm:
		return "confirm"
	case PairingAuthorize:
		return "authorize"
	case PairingRequestPin:
		return "request-pin"
	case PairingRequestPasskey:
		return "request-passkey"
	case PairingDisplayPin:
		return "display-pin"
	case PairingDisplayPasskey:
		return "display-passkey"
	}
	return "unknown"
}

// DeviceInfo describes one wireless adapter.
type DeviceInfo struct {
	Path    dbus.ObjectPath
	Name    string
	Address string
	Powered bool
}

// WifiNetworkData is one visible network as reported by the station's
// ordered scan results. Signal is in centi-dBm.
type WifiNetworkData struct {
	Path      dbus.ObjectPath
	SSID      string
	Security  string
	Signal    int16
	Known     bool
	KnownPath dbus.ObjectPath
}

// KnownNetworkData is one stored network profile.
type KnownNetworkData struct {
	Path        dbus.ObjectPath
	SSID        string
	Security    string
	Hidden      bool
	AutoConnect bool
	LastUsed    string
}

// BatteryUnknown and RSSIUnknown mark properties the daemon did not
// report for a device.
const (
	BatteryUnknown = -1
	RSSIUnknown    = int16(-32768)
)

// BtDeviceData is the transfer snapshot of one Bluetooth device.
type BtDeviceData struct {
	Address   string
	Name      string
	Alias     string
	Icon      string
	Paired    bool
	Trusted   bool
	Connected bool
	Battery   int
	RSSI      int16
}
