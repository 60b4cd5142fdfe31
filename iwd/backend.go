package iwd

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"

	"wlcontrol/common"
)

const connectTimeout = 60 * time.Second

// Backend owns one active wireless adapter and performs every station
// operation against it. Long-running calls are spawned; their outcomes
// come back through the emit callback, never as return values.
type Backend struct {
	conn  *dbus.Conn
	emit  func(common.Event)
	log   common.Logger
	agent *Agent

	// mu guards device: spawned connect and disconnect goroutines
	// read it while the loop switches adapters.
	mu      sync.Mutex
	device  dbus.ObjectPath
	connect common.OpSlot
}

// NewBackend checks that the daemon is reachable and registers the
// credential agent. A nil Backend with a nil error means the daemon is
// simply not running and WiFi should be reported unavailable.
func NewBackend(conn *dbus.Conn, emit func(common.Event)) (*Backend, error) {
	var owner string
	err := conn.BusObject().Call("org.freedesktop.DBus.GetNameOwner", 0, Dest).Store(&owner)
	if err != nil {
		return nil, nil
	}

	b := &Backend{
		conn: conn,
		emit: emit,
		log:  common.GetLogger().ChildLogger(map[string]interface{}{"mod": "iwd"}),
	}

	agent, err := RegisterAgent(conn)
	if err != nil {
		// Open and pre-shared networks still work without the agent,
		// only passphrase prompts are lost. Warn and carry on.
		b.log.Warnf("cannot register credential agent: %v", err)
		emit(common.WifiError{Message: "Cannot register password agent, secured networks may fail"})
	} else {
		b.agent = agent
	}

	return b, nil
}

// Agent returns the registered credential agent.
func (b *Backend) Agent() *Agent { return b.agent }

// Device returns the adapter the backend currently drives.
func (b *Backend) Device() dbus.ObjectPath {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.device
}

// SetDevice switches the backend to another adapter. Any in-flight
// connect belongs to the old adapter and is cancelled.
func (b *Backend) SetDevice(path dbus.ObjectPath) {
	b.connect.Cancel()
	b.mu.Lock()
	b.device = path
	b.mu.Unlock()
}

func (b *Backend) deviceObj() dbus.BusObject {
	return b.conn.Object(Dest, b.Device())
}

// Devices enumerates every wireless adapter the daemon exposes,
// sorted by path for stable ordering.
func (b *Backend) Devices() ([]common.DeviceInfo, error) {
	objs, err := getManagedObjects(b.conn)
	if err != nil {
		return nil, errors.Wrap(err, "listing iwd objects")
	}

	var devices []common.DeviceInfo
	for path, ifaces := range objs {
		props, ok := ifaces[DeviceIF]
		if !ok {
			continue
		}
		devices = append(devices, common.DeviceInfo{
			Path:    path,
			Name:    variantString(props, "Name"),
			Address: variantString(props, "Address"),
			Powered: variantBool(props, "Powered"),
		})
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].Path < devices[j].Path })
	return devices, nil
}

// PickDevice chooses the initial adapter: one whose station is already
// connected wins, otherwise the first in the list.
func (b *Backend) PickDevice(devices []common.DeviceInfo) dbus.ObjectPath {
	for _, d := range devices {
		if !d.Powered {
			continue
		}
		obj := b.conn.Object(Dest, d.Path)
		if v, err := obj.GetProperty(StationIF + ".State"); err == nil {
			if s, ok := v.Value().(string); ok && s == "connected" {
				return d.Path
			}
		}
	}
	if len(devices) > 0 {
		return devices[0].Path
	}
	return ""
}

// Powered reads the adapter power state.
func (b *Backend) Powered() (bool, error) {
	obj := b.deviceObj()
	v, err := obj.GetProperty(DeviceIF + ".Powered")
	if err != nil {
		return false, err
	}
	on, _ := v.Value().(bool)
	return on, nil
}

// SetPowered flips the adapter power state.
func (b *Backend) SetPowered(on bool) error {
	obj := b.deviceObj()
	return obj.SetProperty(DeviceIF+".Powered", dbus.MakeVariant(on))
}

// stationBackoff is the wait schedule for the station interface to
// appear after power-on: 50ms doubling, capped at 800ms.
func stationBackoff(attempt int) time.Duration {
	shift := attempt
	if shift > 4 {
		shift = 4
	}
	return 50 * time.Millisecond << shift
}

// WaitForStation polls until the adapter exposes its station interface.
// The daemon creates it asynchronously after power-on, so the first
// reads after SetPowered(true) can race it.
func (b *Backend) WaitForStation(ctx context.Context) error {
	obj := b.deviceObj()
	var last error
	for attempt := 0; attempt < 10; attempt++ {
		if _, err := obj.GetProperty(StationIF + ".State"); err == nil {
			return nil
		} else {
			last = err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(stationBackoff(attempt)):
		}
	}
	return errors.Wrap(last, "station interface never appeared")
}

// Scanning reads the station scan flag.
func (b *Backend) Scanning() (bool, error) {
	obj := b.deviceObj()
	v, err := obj.GetProperty(StationIF + ".Scanning")
	if err != nil {
		return false, err
	}
	on, _ := v.Value().(bool)
	return on, nil
}

// Scan asks the station for a fresh scan. Progress and results arrive
// through property change signals, not here.
func (b *Backend) Scan() error {
	obj := b.deviceObj()
	if call := obj.Call(StationIF+".Scan", 0); call.Err != nil {
		return errors.New(TranslateError(call.Err))
	}
	return nil
}

// ConnectedNetwork returns the network the station is connected to,
// or "" when disconnected.
func (b *Backend) ConnectedNetwork() dbus.ObjectPath {
	obj := b.deviceObj()
	v, err := obj.GetProperty(StationIF + ".ConnectedNetwork")
	if err != nil {
		return ""
	}
	p, _ := v.Value().(dbus.ObjectPath)
	return p
}
