package bluez

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

func dbusErrName(err error) string {
	switch e := err.(type) {
	case dbus.Error:
		return e.Name
	case *dbus.Error:
		return e.Name
	}
	return ""
}

func dbusErrMessage(err error) string {
	var body []interface{}
	switch e := err.(type) {
	case dbus.Error:
		body = e.Body
	case *dbus.Error:
		body = e.Body
	default:
		return err.Error()
	}
	if len(body) > 0 {
		if s, ok := body[0].(string); ok {
			return s
		}
	}
	return ""
}

// TranslateError maps a daemon error to the message shown to the user.
// The daemon encodes the interesting part in free-text reasons like
// "br-connection-page-timeout", so the reason text is matched first and
// the error name is only a fallback.
func TranslateError(err error) string {
	if err == nil {
		return ""
	}

	msg := strings.ToLower(dbusErrMessage(err))
	switch {
	case strings.Contains(msg, "page-timeout") || strings.Contains(msg, "abort-by-local"):
		return "Device not responding. Make sure it is turned on and nearby."
	case strings.Contains(msg, "profile-unavailable"):
		return "No compatible services found on the device."
	case strings.Contains(msg, "already-connected"):
		return "Already connected."
	case strings.Contains(msg, "connection-timeout") || strings.Contains(msg, "connection-attempt-failed"):
		return "Connection timed out."
	case strings.Contains(msg, "connection-refused"):
		return "Connection refused by the device."
	case strings.Contains(msg, "aborted-by-remote") || strings.Contains(msg, "econnreset"):
		return "Device disconnected or turned off."
	case strings.Contains(msg, "not-powered"):
		return "Bluetooth adapter is not powered on."
	case strings.Contains(msg, "not-supported") || strings.Contains(msg, "eopnotsupp"):
		return "Operation not supported."
	case strings.Contains(msg, "busy") || strings.Contains(msg, "in-progress"):
		return "Device is busy, try again."
	case strings.Contains(msg, "not-ready"):
		return "Bluetooth is not ready."
	case strings.Contains(msg, "rejected") || strings.Contains(msg, "canceled"):
		return "Operation cancelled."
	case strings.Contains(msg, "not paired") || strings.Contains(msg, "not-paired"):
		return "Device is not paired. Pair first."
	case strings.Contains(msg, "authentication"):
		return "Authentication failed."
	}

	switch dbusErrName(err) {
	case "org.bluez.Error.AlreadyConnected":
		return "Already connected."
	case "org.bluez.Error.NotReady":
		return "Bluetooth is not ready."
	case "org.bluez.Error.NotSupported":
		return "Operation not supported."
	case "org.bluez.Error.Busy", "org.bluez.Error.InProgress":
		return "Device is busy, try again."
	case "org.bluez.Error.Rejected", "org.bluez.Error.Canceled":
		return "Operation cancelled."
	case "org.bluez.Error.AuthenticationFailed",
		"org.bluez.Error.AuthenticationCanceled",
		"org.bluez.Error.AuthenticationRejected",
		"org.bluez.Error.AuthenticationTimeout":
		return "Authentication failed."
	case "org.bluez.Error.NotConnected":
		return "Not connected."
	}

	out := dbusErrMessage(err)
	if out == "" {
		out = dbusErrName(err)
	}
	return fmt.Sprintf("Bluetooth error: %s", out)
}
