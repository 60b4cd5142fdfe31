package common

import "testing"

func TestDeriveWifiState(t *testing.T) {
	cases := []struct {
		name  string
		flags WifiNetworkFlags
		want  WifiNetworkState
	}{
		{"plain visible", WifiNetworkFlags{Visible: true}, WifiStateAvailable},
		{"known visible", WifiNetworkFlags{Known: true, Visible: true}, WifiStateSaved},
		{"known out of range", WifiNetworkFlags{Known: true}, WifiStateSavedOffline},
		{"connected", WifiNetworkFlags{Known: true, Visible: true, Connected: true}, WifiStateConnected},
		{"connecting beats connected", WifiNetworkFlags{Connected: true, Connecting: true}, WifiStateConnecting},
		{"disconnecting beats connecting", WifiNetworkFlags{Connecting: true, Disconnecting: true}, WifiStateDisconnecting},
		{"forgetting beats everything", WifiNetworkFlags{Known: true, Connected: true, Connecting: true, Disconnecting: true, Forgetting: true}, WifiStateForgetting},
	}

	for _, c := range cases {
		if got := DeriveWifiState(c.flags); got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, got, c.want)
		}
	}
}

func TestDeriveBtState(t *testing.T) {
	cases := []struct {
		name  string
		flags BtDeviceFlags
		want  BtDeviceState
	}{
		{"fresh discovery", BtDeviceFlags{}, BtStateDiscovered},
		{"paired", BtDeviceFlags{Paired: true}, BtStatePaired},
		{"connected", BtDeviceFlags{Paired: true, Connected: true}, BtStateConnected},
		{"connect on unpaired shows pairing", BtDeviceFlags{Connecting: true}, BtStatePairing},
		{"connect on paired shows connecting", BtDeviceFlags{Paired: true, Connecting: true}, BtStateConnecting},
		{"disconnecting beats connecting", BtDeviceFlags{Paired: true, Connecting: true, Disconnecting: true}, BtStateDisconnecting},
		{"removing beats everything", BtDeviceFlags{Paired: true, Connected: true, Disconnecting: true, Removing: true}, BtStateRemoving},
	}

	for _, c := range cases {
		if got := DeriveBtState(c.flags); got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, got, c.want)
		}
	}
}
