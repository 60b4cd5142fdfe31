package iwd

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

// TranslateError maps a daemon error to the message shown to the user.
// Matching is on the last segment of the D-Bus error name, since the
// daemon spreads the same error across several interface prefixes.
func TranslateError(err error) string {
	if err == nil {
		return ""
	}

	name := ""
	if dbusErr, ok := err.(dbus.Error); ok {
		name = dbusErr.Name
	} else if dbusErr, ok := err.(*dbus.Error); ok {
		name = dbusErr.Name
	} else {
		return fmt.Sprintf("Connection failed: %s", err)
	}

	short := name
	if i := strings.LastIndex(name, "."); i >= 0 {
		short = name[i+1:]
	}

	switch short {
	case "Aborted", "Canceled":
		return "Connection cancelled"
	case "InvalidFormat", "InvalidArguments":
		return "Invalid password"
	case "AuthenticationFailed":
		return "Wrong password"
	case "NotConnected":
		return "Not connected"
	case "Busy":
		return "Device is busy, try again"
	case "NotFound":
		return "Network not found"
	case "NoAgent":
		return "No agent registered"
	case "Failed":
		return "Connection failed"
	}
	return fmt.Sprintf("Connection failed: %s", short)
}
