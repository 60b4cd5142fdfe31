package iwd

import (
	"context"
	"net/http"
	"time"

	"github.com/godbus/dbus/v5"

	"wlcontrol/common"
)

// probeURL answers 204 on the open internet and a redirect to the
// portal page behind a captive portal.
const probeURL = "http://connectivitycheck.gstatic.com/generate_204"

// Connect starts a connection attempt to the given network. A previous
// attempt still in flight is cancelled first. The outcome is emitted,
// never returned: WifiConnected on success, WifiError plus the actual
// connected network on failure.
func (b *Backend) Connect(path dbus.ObjectPath) {
	slotCtx, done := b.connect.Begin(context.Background())
	ctx, cancel := context.WithTimeout(slotCtx, connectTimeout)

	b.emit(common.WifiConnecting{Path: path})

	device := b.Device()
	go func() {
		defer done()
		defer cancel()

		obj := b.conn.Object(Dest, path)
		call := obj.CallWithContext(ctx, NetworkIF+".Connect", 0)

		if call.Err == nil {
			b.emitConnected(path)
			go b.probeCaptivePortal()
			return
		}

		msg := TranslateError(call.Err)
		switch {
		case ctx.Err() == context.DeadlineExceeded:
			msg = "Connection timed out"
		case ctx.Err() == context.Canceled:
			msg = "Connection cancelled"
		}
		b.log.Debugf("connect to %s failed: %v", path, call.Err)

		// The attempt may have left the station on a different network
		// than before, or on none. Report what the daemon says, never
		// an assumption.
		if b.Device() == device {
			b.emit(common.WifiConnected{Path: b.ConnectedNetwork()})
		}
		b.emit(common.WifiError{Message: msg})
	}()
}

// emitConnected reports a settled successful connect. The daemon saves
// the network as a side effect of connecting, so the known flag is
// forwarded right away instead of waiting for the next snapshot.
func (b *Backend) emitConnected(path dbus.ObjectPath) {
	b.emit(common.WifiConnected{Path: path})
	b.emit(common.WifiNetworkKnown{Path: path, Known: true})
}

// CancelConnect aborts the in-flight connection attempt, if any.
func (b *Backend) CancelConnect() {
	b.connect.Cancel()
	b.agent.CancelPending()
}

// Disconnect drops the station's current connection. Runs detached;
// the settled state comes back as WifiConnected.
func (b *Backend) Disconnect() {
	obj := b.deviceObj()
	go func() {
		call := obj.Call(StationIF+".Disconnect", 0)
		if call.Err != nil {
			b.emit(common.WifiError{Message: TranslateError(call.Err)})
		}
		b.emit(common.WifiConnected{Path: b.ConnectedNetwork()})
	}()
}

// Forget resolves the network's stored profile and deletes it.
func (b *Backend) Forget(path dbus.ObjectPath) error {
	obj := b.conn.Object(Dest, path)
	v, err := obj.GetProperty(NetworkIF + ".KnownNetwork")
	if err != nil {
		return err
	}
	known, _ := v.Value().(dbus.ObjectPath)
	if known == "" {
		return nil
	}
	return b.ForgetKnown(known)
}

// ForgetKnown deletes a stored profile directly.
func (b *Backend) ForgetKnown(path dbus.ObjectPath) error {
	obj := b.conn.Object(Dest, path)
	return obj.Call(KnownNetIF+".Forget", 0).Err
}

func (b *Backend) probeCaptivePortal() {
	client := &http.Client{
		Timeout: 10 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := client.Get(probeURL)
	if err != nil {
		b.log.Debugf("portal probe failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		if loc := resp.Header.Get("Location"); loc != "" {
			b.emit(common.CaptivePortal{URL: loc})
		}
	}
}
