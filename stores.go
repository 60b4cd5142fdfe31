package main

import (
	"github.com/godbus/dbus/v5"

	"wlcontrol/common"
	"wlcontrol/models"
)

// wifiStore folds the backend's wifi events into the data the tables
// render. Optimistic flags set on user actions are cleared when the
// daemon settles or an error arrives.
type wifiStore struct {
	available bool
	devices   []common.DeviceInfo
	active    dbus.ObjectPath
	powered   bool
	scanning  bool

	networks []common.WifiNetworkData
	known    []common.KnownNetworkData

	connectedPath  dbus.ObjectPath
	connectingPath dbus.ObjectPath
	disconnecting  bool

	forgetting      map[dbus.ObjectPath]bool
	forgettingKnown map[dbus.ObjectPath]bool
}

func newWifiStore() wifiStore {
	return wifiStore{
		forgetting:      make(map[dbus.ObjectPath]bool),
		forgettingKnown: make(map[dbus.ObjectPath]bool),
	}
}

func (s *wifiStore) apply(ev common.Event) {
	switch ev := ev.(type) {
	case common.WifiAvailable:
		s.available = ev.Available
	case common.WifiDevices:
		s.devices = ev.Devices
		s.active = ev.Active
		for _, d := range ev.Devices {
			if d.Path == ev.Active {
				s.powered = d.Powered
			}
		}
		if ev.Active == "" {
			s.powered = false
			s.scanning = false
			s.networks = nil
			s.connectedPath = ""
			s.connectingPath = ""
		}
	case common.WifiPowered:
		s.powered = ev.Powered
		for i := range s.devices {
			if s.devices[i].Path == s.active {
				s.devices[i].Powered = ev.Powered
			}
		}
		if !ev.Powered {
			s.scanning = false
			s.networks = nil
			s.connectedPath = ""
			s.connectingPath = ""
			s.disconnecting = false
		}
	case common.WifiScanning:
		s.scanning = ev.Scanning
	case common.WifiNetworks:
		s.networks = ev.Networks
		clear(s.forgetting)
	case common.WifiConnected:
		s.connectedPath = ev.Path
		s.connectingPath = ""
		s.disconnecting = false
	case common.WifiConnecting:
		s.connectingPath = ev.Path
	case common.WifiNetworkKnown:
		for i := range s.networks {
			if s.networks[i].Path == ev.Path {
				s.networks[i].Known = ev.Known
				if !ev.Known {
					s.networks[i].KnownPath = ""
				}
			}
		}
	case common.WifiKnownNetworks:
		s.known = ev.Networks
		clear(s.forgettingKnown)
	case common.WifiError:
		// Settled state arrives in separate events; drop every
		// in-flight marker so rows never stick in a busy state.
		s.connectingPath = ""
		s.disconnecting = false
		clear(s.forgetting)
		clear(s.forgettingKnown)
	}
}

func (s *wifiStore) adapterRows() []models.AdapterRow {
	rows := make([]models.AdapterRow, 0, len(s.devices))
	for _, d := range s.devices {
		rows = append(rows, models.AdapterRow{
			Path:    d.Path,
			Name:    d.Name,
			Address: d.Address,
			Powered: d.Powered,
			Active:  d.Path == s.active,
		})
	}
	return rows
}

func (s *wifiStore) networkRows() []models.NetworkRow {
	rows := make([]models.NetworkRow, 0, len(s.networks))
	for _, n := range s.networks {
		flags := common.WifiNetworkFlags{
			Known:         n.Known,
			Visible:       true,
			Connected:     n.Path == s.connectedPath,
			Connecting:    n.Path == s.connectingPath,
			Disconnecting: s.disconnecting && n.Path == s.connectedPath,
			Forgetting:    s.forgetting[n.Path] || (n.KnownPath != "" && s.forgettingKnown[n.KnownPath]),
		}
		rows = append(rows, models.NetworkRow{
			Path:     n.Path,
			SSID:     n.SSID,
			Security: n.Security,
			Signal:   n.Signal,
			State:    common.DeriveWifiState(flags),
		})
	}
	return rows
}

func (s *wifiStore) knownRows() []models.KnownRow {
	offline := common.FilterKnownNetworks(s.known, s.networks)
	rows := make([]models.KnownRow, 0, len(offline))
	for _, k := range offline {
		flags := common.WifiNetworkFlags{
			Known:      true,
			Forgetting: s.forgettingKnown[k.Path],
		}
		rows = append(rows, models.KnownRow{
			Path:        k.Path,
			SSID:        k.SSID,
			Security:    k.Security,
			Hidden:      k.Hidden,
			AutoConnect: k.AutoConnect,
			LastUsed:    k.LastUsed,
			State:       common.DeriveWifiState(flags),
		})
	}
	return rows
}

// btStore folds the Bluetooth events the same way. Device order is
// insertion order, so rows do not jump around on property changes.
type btStore struct {
	available    bool
	powered      bool
	discovering  bool
	discoverable bool

	order   []string
	devices map[string]common.BtDeviceData

	connecting    map[string]bool
	disconnecting map[string]bool
	removing      map[string]bool
}

func newBtStore() btStore {
	return btStore{
		devices:       make(map[string]common.BtDeviceData),
		connecting:    make(map[string]bool),
		disconnecting: make(map[string]bool),
		removing:      make(map[string]bool),
	}
}

func (s *btStore) upsert(d common.BtDeviceData) {
	if _, ok := s.devices[d.Address]; !ok {
		s.order = append(s.order, d.Address)
	}
	s.devices[d.Address] = d
}

func (s *btStore) drop(address string) {
	delete(s.devices, address)
	delete(s.connecting, address)
	delete(s.disconnecting, address)
	delete(s.removing, address)
	for i, a := range s.order {
		if a == address {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *btStore) clearBusy() {
	clear(s.connecting)
	clear(s.disconnecting)
	clear(s.removing)
}

func (s *btStore) apply(ev common.Event) {
	switch ev := ev.(type) {
	case common.BtAvailable:
		s.available = ev.Available
	case common.BtPowered:
		s.powered = ev.Powered
		if !ev.Powered {
			s.discovering = false
			s.clearBusy()
			// Paired devices survive a power cycle; pure discovery
			// artifacts do not.
			kept := make([]string, 0, len(s.order))
			for _, addr := range s.order {
				d := s.devices[addr]
				if !d.Paired {
					delete(s.devices, addr)
					continue
				}
				d.Connected = false
				s.devices[addr] = d
				kept = append(kept, addr)
			}
			s.order = kept
		}
	case common.BtDiscovering:
		s.discovering = ev.Discovering
	case common.BtDiscoverable:
		s.discoverable = ev.Discoverable
	case common.BtConnecting:
		s.connecting[ev.Address] = true
	case common.BtDeviceAdded:
		s.upsert(ev.Device)
	case common.BtDeviceChanged:
		s.upsert(ev.Device)
	case common.BtDeviceRemoved:
		s.drop(ev.Address)
	case common.BtOperationDone:
		s.upsert(ev.Device)
		delete(s.connecting, ev.Device.Address)
		delete(s.disconnecting, ev.Device.Address)
		delete(s.removing, ev.Device.Address)
	case common.BtError:
		s.clearBusy()
	}
}

func (s *btStore) rows() []models.BtRow {
	rows := make([]models.BtRow, 0, len(s.order))
	for _, addr := range s.order {
		d, ok := s.devices[addr]
		if !ok {
			continue
		}
		flags := common.BtDeviceFlags{
			Paired:        d.Paired,
			Connected:     d.Connected,
			Connecting:    s.connecting[addr],
			Disconnecting: s.disconnecting[addr],
			Removing:      s.removing[addr],
		}
		label := d.Alias
		if label == "" {
			label = d.Name
		}
		if label == "" {
			label = d.Address
		}
		rows = append(rows, models.BtRow{
			Address: d.Address,
			Label:   label,
			Icon:    d.Icon,
			Trusted: d.Trusted,
			Battery: d.Battery,
			RSSI:    d.RSSI,
			State:   common.DeriveBtState(flags),
		})
	}
	return rows
}
