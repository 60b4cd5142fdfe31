package models

import (
	"github.com/godbus/dbus/v5"

	"wlcontrol/common"
)

// SubmitConfirmationMsg is emitted by the confirmation popup when the
// user picks an answer.
type SubmitConfirmationMsg struct{ Value bool }

// AdapterRow is one wireless adapter line.
type AdapterRow struct {
	Path     dbus.ObjectPath
	Name     string
	Address  string
	Powered  bool
	Active   bool
	Scanning bool
}

// NetworkRow is one visible network with its derived state.
type NetworkRow struct {
	Path     dbus.ObjectPath
	SSID     string
	Security string
	Signal   int16
	State    common.WifiNetworkState
}

// KnownRow is one stored profile that is currently out of range.
type KnownRow struct {
	Path        dbus.ObjectPath
	SSID        string
	Security    string
	Hidden      bool
	AutoConnect bool
	LastUsed    string
	State       common.WifiNetworkState
}

// BtRow is one Bluetooth device line.
type BtRow struct {
	Address string
	Label   string
	Icon    string
	Trusted bool
	Battery int
	RSSI    int16
	State   common.BtDeviceState
}
