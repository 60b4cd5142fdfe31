package bluez

import (
	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"

	"wlcontrol/common"
)

var errDeviceGone = errors.New("device no longer exists")

// Backend owns the active Bluetooth adapter and performs every device
// operation against it. Connect, disconnect, pair and remove run
// detached and settle through the emit callback.
type Backend struct {
	conn  *dbus.Conn
	emit  func(common.Event)
	log   common.Logger
	agent *Agent

	adapter dbus.ObjectPath
}

// NewBackend finds the first adapter and registers the pairing agent.
// A nil Backend with a nil error means the daemon is not on the bus
// and Bluetooth should be reported unavailable.
func NewBackend(conn *dbus.Conn, emit func(common.Event)) (*Backend, error) {
	var owner string
	err := conn.BusObject().Call("org.freedesktop.DBus.GetNameOwner", 0, Dest).Store(&owner)
	if err != nil {
		return nil, nil
	}

	b := &Backend{
		conn: conn,
		emit: emit,
		log:  common.GetLogger().ChildLogger(map[string]interface{}{"mod": "bluez"}),
	}

	objs, err := b.managedObjects()
	if err != nil {
		return nil, errors.Wrap(err, "listing bluez objects")
	}
	for path, ifaces := range objs {
		if _, ok := ifaces[AdapterIF]; ok {
			b.adapter = path
			break
		}
	}
	if b.adapter == "" {
		// Daemon running but no controller plugged in.
		return nil, nil
	}

	agent, err := RegisterAgent(conn)
	if err != nil {
		// Connecting to already-paired devices works without the
		// agent, only new pairings are lost. Warn and carry on.
		b.log.Warnf("cannot register pairing agent: %v", err)
		emit(common.BtError{Message: "Cannot register pairing agent, pairing new devices may fail"})
	} else {
		b.agent = agent
	}

	return b, nil
}

// Agent returns the registered pairing agent.
func (b *Backend) Agent() *Agent { return b.agent }

// Adapter returns the active adapter path.
func (b *Backend) Adapter() dbus.ObjectPath { return b.adapter }

func (b *Backend) managedObjects() (ManagedObjects, error) {
	var objs ManagedObjects
	root := b.conn.Object(Dest, "/")
	if err := root.Call(ObjMgrIF+".GetManagedObjects", 0).Store(&objs); err != nil {
		return nil, errors.Wrap(err, "GetManagedObjects")
	}
	return objs, nil
}

func (b *Backend) adapterObj() dbus.BusObject {
	return b.conn.Object(Dest, b.adapter)
}

// Powered reads the adapter power state.
func (b *Backend) Powered() (bool, error) {
	v, err := b.adapterObj().GetProperty(AdapterIF + ".Powered")
	if err != nil {
		return false, err
	}
	on, _ := v.Value().(bool)
	return on, nil
}

// SetPowered flips the adapter power state. On failure the actual
// value is re-read and emitted so the client can roll back its
// optimistic toggle.
func (b *Backend) SetPowered(on bool) {
	if err := b.adapterObj().SetProperty(AdapterIF+".Powered", dbus.MakeVariant(on)); err != nil {
		b.log.Errorf("set powered %v failed: %v", on, err)
		b.emit(common.BtError{Message: TranslateError(err)})
		if actual, err := b.Powered(); err == nil {
			b.emit(common.BtPowered{Powered: actual})
		}
		return
	}
	b.emit(common.BtPowered{Powered: on})
}

// Discoverable reads the adapter discoverable flag.
func (b *Backend) Discoverable() (bool, error) {
	v, err := b.adapterObj().GetProperty(AdapterIF + ".Discoverable")
	if err != nil {
		return false, err
	}
	on, _ := v.Value().(bool)
	return on, nil
}

// SetDiscoverable flips the adapter discoverable flag, with the same
// rollback behavior as SetPowered.
func (b *Backend) SetDiscoverable(on bool) {
	if err := b.adapterObj().SetProperty(AdapterIF+".Discoverable", dbus.MakeVariant(on)); err != nil {
		b.log.Errorf("set discoverable %v failed: %v", on, err)
		b.emit(common.BtError{Message: TranslateError(err)})
		if actual, err := b.Discoverable(); err == nil {
			b.emit(common.BtDiscoverable{Discoverable: actual})
		}
		return
	}
	b.emit(common.BtDiscoverable{Discoverable: on})
}

// StartDiscovery begins a device scan.
func (b *Backend) StartDiscovery() error {
	if call := b.adapterObj().Call(AdapterIF+".StartDiscovery", 0); call.Err != nil {
		return errors.New(TranslateError(call.Err))
	}
	return nil
}

// StopDiscovery ends the device scan. Stopping a scan that is not
// running is not an error.
func (b *Backend) StopDiscovery() error {
	call := b.adapterObj().Call(AdapterIF+".StopDiscovery", 0)
	if call.Err == nil {
		return nil
	}
	if dbusErrMessage(call.Err) == "No discovery started" {
		return nil
	}
	return errors.New(TranslateError(call.Err))
}

// Connect establishes the device's profiles. Runs detached; the
// outcome settles as BtOperationDone with the re-read device state.
func (b *Backend) Connect(addr string) {
	b.emit(common.BtConnecting{Address: addr})
	b.settle(addr, func(obj dbus.BusObject) error {
		return obj.Call(DeviceIF+".Connect", 0).Err
	})
}

// Disconnect drops the device's profiles. Runs detached.
func (b *Backend) Disconnect(addr string) {
	b.settle(addr, func(obj dbus.BusObject) error {
		return obj.Call(DeviceIF+".Disconnect", 0).Err
	})
}

// Pair bonds with the device and marks it trusted on success, so it
// can reconnect without another agent round. Runs detached; the loop
// must stay free to relay the agent round trip while this is pending.
func (b *Backend) Pair(addr string) {
	b.emit(common.BtConnecting{Address: addr})
	b.settle(addr, func(obj dbus.BusObject) error {
		if err := obj.Call(DeviceIF+".Pair", 0).Err; err != nil {
			return err
		}
		if err := obj.SetProperty(DeviceIF+".Trusted", dbus.MakeVariant(true)); err != nil {
			b.log.Warnf("pairing succeeded but trusting failed: %v", err)
		}
		return nil
	})
}

// settle runs op against the device object and emits the settled
// outcome with the device state re-read from the daemon.
func (b *Backend) settle(addr string, op func(dbus.BusObject) error) {
	obj := b.conn.Object(Dest, DevicePath(b.adapter, addr))
	go func() {
		opErr := op(obj)

		data, readErr := b.ReadDevice(addr)
		if readErr != nil {
			data = common.BtDeviceData{Address: addr, Battery: common.BatteryUnknown, RSSI: common.RSSIUnknown}
		}

		msg := ""
		if opErr != nil {
			msg = TranslateError(opErr)
		}
		b.emit(common.BtOperationDone{Device: data, Error: msg})
	}()
}

// Remove unpairs and deletes the device. A device already gone counts
// as removed. Runs detached; settles as BtDeviceRemoved or BtError.
func (b *Backend) Remove(addr string) {
	path := DevicePath(b.adapter, addr)
	go func() {
		call := b.adapterObj().Call(AdapterIF+".RemoveDevice", 0, path)
		if call.Err != nil && dbusErrName(call.Err) != "org.bluez.Error.DoesNotExist" {
			b.emit(common.BtError{Message: TranslateError(call.Err)})
			return
		}
		b.emit(common.BtDeviceRemoved{Address: addr})
	}()
}

// SetAlias renames the device. The change comes back as a property
// signal.
func (b *Backend) SetAlias(addr, alias string) error {
	obj := b.conn.Object(Dest, DevicePath(b.adapter, addr))
	return obj.SetProperty(DeviceIF+".Alias", dbus.MakeVariant(alias))
}

// SetTrusted flips the device trust flag.
func (b *Backend) SetTrusted(addr string, trusted bool) error {
	obj := b.conn.Object(Dest, DevicePath(b.adapter, addr))
	return obj.SetProperty(DeviceIF+".Trusted", dbus.MakeVariant(trusted))
}
