package iwd

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"
)

func iwdErr(name string) error {
	return dbus.Error{Name: "net.connman.iwd." + name, Body: nil}
}

func TestTranslateError(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{iwdErr("Aborted"), "Connection cancelled"},
		{dbus.Error{Name: "net.connman.iwd.Agent.Error.Canceled"}, "Connection cancelled"},
		{iwdErr("InvalidFormat"), "Invalid password"},
		{iwdErr("InvalidArguments"), "Invalid password"},
		{iwdErr("AuthenticationFailed"), "Wrong password"},
		{iwdErr("NotConnected"), "Not connected"},
		{iwdErr("Busy"), "Device is busy, try again"},
		{iwdErr("NotFound"), "Network not found"},
		{iwdErr("NoAgent"), "No agent registered"},
		{iwdErr("Failed"), "Connection failed"},
		{iwdErr("ServiceSetOverlap"), "Connection failed: ServiceSetOverlap"},
		{errors.New("socket closed"), "Connection failed: socket closed"},
		{nil, ""},
	}

	for _, c := range cases {
		if got := TranslateError(c.err); got != c.want {
			t.Errorf("TranslateError(%v) = %q, want %q", c.err, got, c.want)
		}
	}
}

func TestTranslateErrorPointer(t *testing.T) {
	err := dbus.NewError("net.connman.iwd.Busy", nil)
	if got := TranslateError(err); got != "Device is busy, try again" {
		t.Errorf("pointer error form not recognised: %q", got)
	}
}
