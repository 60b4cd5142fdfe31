package common

// WifiNetworkState is the single canonical state of a network entry,
// derived from daemon facts and in-flight operation flags. Exactly one
// state holds at a time.
type WifiNetworkState int

const (
	WifiStateAvailable WifiNetworkState = iota
	WifiStateSaved
	WifiStateSavedOffline
	WifiStateConnected
	WifiStateConnecting
	WifiStateDisconnecting
	WifiStateForgetting
)

func (s WifiNetworkState) String() string {
	switch s {
	case WifiStateSaved:
		return "saved"
	case WifiStateSavedOffline:
		return "saved (out of range)"
	case WifiStateConnected:
		return "connected"
	case WifiStateConnecting:
		return "connecting"
	case WifiStateDisconnecting:
		return "disconnecting"
	case WifiStateForgetting:
		return "forgetting"
	}
	return ""
}

// WifiNetworkFlags are the raw facts a state is derived from. Known,
// Visible and Connected come from the daemon; the rest are optimistic
// flags for operations the backend has started but not settled.
type WifiNetworkFlags struct {
	Known     bool
	Visible   bool
	Connected bool

	Connecting    bool
	Disconnecting bool
	Forgetting    bool
}

// DeriveWifiState resolves the flag set into one state. In-flight
// operations outrank daemon facts, and forgetting outranks everything.
func DeriveWifiState(f WifiNetworkFlags) WifiNetworkState {
	switch {
	case f.Forgetting:
		return WifiStateForgetting
	case f.Disconnecting:
		return WifiStateDisconnecting
	case f.Connecting:
		return WifiStateConnecting
	case f.Connected:
		return WifiStateConnected
	case f.Known && !f.Visible:
		return WifiStateSavedOffline
	case f.Known:
		return WifiStateSaved
	}
	return WifiStateAvailable
}

// BtDeviceState is the canonical state of a Bluetooth device entry.
type BtDeviceState int

const (
	BtStateDiscovered BtDeviceState = iota
	BtStatePaired
	BtStateConnected
	BtStatePairing
	BtStateConnecting
	BtStateDisconnecting
	BtStateRemoving
)

func (s BtDeviceState) String() string {
	switch s {
	case BtStatePaired:
		return "paired"
	case BtStateConnected:
		return "connected"
	case BtStatePairing:
		return "pairing"
	case BtStateConnecting:
		return "connecting"
	case BtStateDisconnecting:
		return "disconnecting"
	case BtStateRemoving:
		return "removing"
	}
	return "discovered"
}

// BtDeviceFlags are the facts a device state is derived from.
type BtDeviceFlags struct {
	Paired    bool
	Connected bool

	Connecting    bool
	Disconnecting bool
	Removing      bool
}

// DeriveBtState resolves the flag set into one state. A connect on an
// unpaired device shows as pairing, since the daemon pairs implicitly.
func DeriveBtState(f BtDeviceFlags) BtDeviceState {
	switch {
	case f.Removing:
		return BtStateRemoving
	case f.Disconnecting:
		return BtStateDisconnecting
	case f.Connecting && !f.Paired:
		return BtStatePairing
	case f.Connecting:
		return BtStateConnecting
	case f.Connected:
		return BtStateConnected
	case f.Paired:
		return BtStatePaired
	}
	return BtStateDiscovered
}
