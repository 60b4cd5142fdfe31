package bluez

import (
	"testing"

	"github.com/godbus/dbus/v5"
)

func bluezErr(name, reason string) error {
	return dbus.Error{Name: "org.bluez.Error." + name, Body: []interface{}{reason}}
}

func TestTranslateError(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{bluezErr("Failed", "br-connection-page-timeout"), "Device not responding. Make sure it is turned on and nearby."},
		{bluezErr("Failed", "br-connection-profile-unavailable"), "No compatible services found on the device."},
		{bluezErr("AlreadyConnected", "already-connected"), "Already connected."},
		{bluezErr("Failed", "le-connection-abort-by-local"), "Device not responding. Make sure it is turned on and nearby."},
		{bluezErr("Failed", "connection-timeout"), "Connection timed out."},
		{bluezErr("Failed", "br-connection-refused"), "Connection refused by the device."},
		{bluezErr("Failed", "aborted-by-remote"), "Device disconnected or turned off."},
		{bluezErr("NotReady", "not-powered"), "Bluetooth adapter is not powered on."},
		{bluezErr("NotSupported", ""), "Operation not supported."},
		{bluezErr("InProgress", "in-progress"), "Device is busy, try again."},
		{bluezErr("Rejected", "rejected"), "Operation cancelled."},
		{bluezErr("Failed", "not paired"), "Device is not paired. Pair first."},
		{bluezErr("AuthenticationFailed", ""), "Authentication failed."},
		{bluezErr("DoesNotExist", "Does Not Exist"), "Bluetooth error: Does Not Exist"},
		{nil, ""},
	}

	for _, c := range cases {
		if got := TranslateError(c.err); got != c.want {
			t.Errorf("TranslateError(%v) = %q, want %q", c.err, got, c.want)
		}
	}
}

func TestTranslateErrorMatchesOnName(t *testing.T) {
	// Some errors carry no reason text; the name still classifies them.
	err := dbus.Error{Name: "org.bluez.Error.NotReady", Body: nil}
	if got := TranslateError(err); got != "Bluetooth is not ready." {
		t.Errorf("got %q", got)
	}
}
