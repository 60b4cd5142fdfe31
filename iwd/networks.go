package iwd

import (
	"sort"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"

	"wlcontrol/common"
)

type orderedNetwork struct {
	Path   dbus.ObjectPath
	Signal int16
}

// Networks returns the station's visible networks, strongest first
// (the daemon already orders them). Each entry is annotated with its
// stored profile, if one exists.
func (b *Backend) Networks() ([]common.WifiNetworkData, error) {
	obj := b.deviceObj()

	var ordered []orderedNetwork
	if err := obj.Call(StationIF+".GetOrderedNetworks", 0).Store(&ordered); err != nil {
		return nil, errors.Wrap(err, "listing networks")
	}

	networks := make([]common.WifiNetworkData, 0, len(ordered))
	for _, on := range ordered {
		props := GetProps(b.conn.Object(Dest, on.Path), NetworkIF)
		if props == nil {
			continue
		}
		knownPath := variantPath(props, "KnownNetwork")
		networks = append(networks, common.WifiNetworkData{
			Path:      on.Path,
			SSID:      variantString(props, "Name"),
			Security:  variantString(props, "Type"),
			Signal:    on.Signal,
			Known:     knownPath != "",
			KnownPath: knownPath,
		})
	}
	return networks, nil
}

// KnownNetworks returns every stored profile the daemon holds, most
// recently used first.
func (b *Backend) KnownNetworks() ([]common.KnownNetworkData, error) {
	objs, err := getManagedObjects(b.conn)
	if err != nil {
		return nil, errors.Wrap(err, "listing known networks")
	}

	var known []common.KnownNetworkData
	for path, ifaces := range objs {
		props, ok := ifaces[KnownNetIF]
		if !ok {
			continue
		}
		known = append(known, common.KnownNetworkData{
			Path:        path,
			SSID:        variantString(props, "Name"),
			Security:    variantString(props, "Type"),
			Hidden:      variantBool(props, "Hidden"),
			AutoConnect: variantBool(props, "AutoConnect"),
			LastUsed:    variantString(props, "LastConnectedTime"),
		})
	}
	sort.Slice(known, func(i, j int) bool { return known[i].LastUsed > known[j].LastUsed })
	return known, nil
}

// NetworkName reads a network's SSID, falling back to the path's last
// segment when the object is already gone.
func (b *Backend) NetworkName(path dbus.ObjectPath) string {
	obj := b.conn.Object(Dest, path)
	if v, err := obj.GetProperty(NetworkIF + ".Name"); err == nil {
		if s, ok := v.Value().(string); ok {
			return s
		}
	}
	s := string(path)
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// SecurityLabel maps the daemon's network type to the label shown to
// the user.
func SecurityLabel(t string) string {
	switch t {
	case "open":
		return "open"
	case "psk":
		return "wpa2-psk"
	case "8021x":
		return "wpa2-eap"
	case "wep":
		return "wep"
	}
	return "encrypted"
}
