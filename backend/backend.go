package backend

import (
	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"

	"wlcontrol/bluez"
	"wlcontrol/common"
	"wlcontrol/iwd"
)

// Start spins up the loop on the given bus connection and returns the
// command/event channel pair the client talks through. The event
// channel is closed when the loop ends.
func Start(conn *dbus.Conn) (chan<- common.Command, <-chan common.Event) {
	commands := make(chan common.Command, 32)
	events := make(chan common.Event, 32)

	go func() {
		defer close(events)
		if err := Run(conn, commands, events); err != nil {
			common.GetLogger().Errorf("backend loop failed: %v", err)
		}
	}()

	return commands, events
}

// Run wires both daemons, replays their initial state, and drives the
// loop until shutdown. It blocks.
func Run(conn *dbus.Conn, commands <-chan common.Command, events chan<- common.Event) error {
	log := common.GetLogger().ChildLogger(map[string]interface{}{"mod": "backend"})
	emit := func(e common.Event) { events <- e }

	signals := make(chan *dbus.Signal, 64)
	conn.Signal(signals)
	defer conn.RemoveSignal(signals)

	if err := addMatchRules(conn); err != nil {
		return err
	}

	streams := &EventStreams{
		Commands: commands,
		Signals:  signals,
		Tracked:  make(map[string]struct{}),
	}

	// A daemon that is missing or broken costs its subsystem, not the
	// loop. The availability events below tell the client which half
	// survived.
	wifi, err := iwd.NewBackend(conn, emit)
	if err != nil {
		log.Warnf("wifi backend unavailable: %v", err)
		wifi = nil
	}
	bt, err := bluez.NewBackend(conn, emit)
	if err != nil {
		log.Warnf("bluetooth backend unavailable: %v", err)
		bt = nil
	}

	st := NewBackendState(nil, nil, emit)
	if wifi != nil {
		st.Wifi = wifi
		streams.Passphrase = wifi.Agent().Requests()
	}
	if bt != nil {
		st.Bt = bt
		streams.Pairing = bt.Agent().Requests()
	}

	emit(common.WifiAvailable{Available: wifi != nil})
	emit(common.BtAvailable{Available: bt != nil})

	if wifi != nil {
		devices, err := wifi.Devices()
		if err != nil {
			log.Warnf("listing wifi adapters: %v", err)
		}
		st.wifiDevices = devices
		active := wifi.PickDevice(devices)
		wifi.SetDevice(active)
		streams.WifiDevice = active
		emit(common.WifiDevices{Devices: devices, Active: active})
		if active != "" {
			st.sendWifiInitialState(streams)
		}
	}

	if bt != nil {
		streams.BtAdapter = bt.Adapter()
		streams.BtUp = true
		st.sendBtInitialState(streams)
	}

	log.Info("backend loop running")
	for {
		if st.HandleEvent(streams.Next(), streams) == Break {
			log.Info("backend loop stopped")
			return nil
		}
	}
}

// addMatchRules subscribes to both daemons' property and object
// lifecycle signals. Finer filtering happens in translate, per the
// loop's gating state.
func addMatchRules(conn *dbus.Conn) error {
	for _, sender := range []string{iwd.Dest, bluez.Dest} {
		rules := [][]dbus.MatchOption{
			{
				dbus.WithMatchSender(sender),
				dbus.WithMatchInterface("org.freedesktop.DBus.Properties"),
				dbus.WithMatchMember("PropertiesChanged"),
			},
			{
				dbus.WithMatchSender(sender),
				dbus.WithMatchInterface("org.freedesktop.DBus.ObjectManager"),
				dbus.WithMatchMember("InterfacesAdded"),
			},
			{
				dbus.WithMatchSender(sender),
				dbus.WithMatchInterface("org.freedesktop.DBus.ObjectManager"),
				dbus.WithMatchMember("InterfacesRemoved"),
			},
		}
		for _, r := range rules {
			if err := conn.AddMatchSignal(r...); err != nil {
				return errors.Wrapf(err, "adding match rule for %s", sender)
			}
		}
	}
	return nil
}
