package bluez

import (
	"fmt"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"wlcontrol/common"
)

var (
	errAgentRejected = dbus.NewError("org.bluez.Error.Rejected", nil)
	errAgentCanceled = dbus.NewError("org.bluez.Error.Canceled", nil)
)

// PairingReply answers an interactive pairing request. For confirm and
// authorize kinds only Accept matters; for PIN and passkey kinds the
// value fields carry the user's input.
type PairingReply struct {
	Accept  bool
	Pin     string
	Passkey uint32
}

// PairingRequest is one agent interaction. Display kinds carry a nil
// Reply; interactive kinds block the daemon until Reply is answered or
// closed.
type PairingRequest struct {
	Kind    common.PairingKind
	Address string
	Code    string
	Reply   chan PairingReply
}

// Agent is the pairing agent object exported on the bus. The daemon
// calls it mid-pair; interactive calls park until the consumer answers
// through the request's Reply channel.
type Agent struct {
	path     dbus.ObjectPath
	requests chan PairingRequest
	log      common.Logger

	mu      sync.Mutex
	pending chan struct{}
}

// RegisterAgent exports a fresh agent at a unique path and makes it
// the default, so pairing initiated by either side lands here.
func RegisterAgent(conn *dbus.Conn) (*Agent, error) {
	id := strings.ReplaceAll(uuid.NewString(), "-", "_")
	a := &Agent{
		path:     dbus.ObjectPath("/wlcontrol/btagent/" + id),
		requests: make(chan PairingRequest, 4),
		log:      common.GetLogger().ChildLogger(map[string]interface{}{"mod": "bt-agent"}),
	}

	if err := conn.Export(a, a.path, AgentIF); err != nil {
		return nil, errors.Wrap(err, "exporting agent object")
	}

	mgr := conn.Object(Dest, AgentMgrPath)
	if call := mgr.Call(AgentMgrIF+".RegisterAgent", 0, a.path, "KeyboardDisplay"); call.Err != nil {
		return nil, errors.Wrap(call.Err, "registering agent")
	}
	if call := mgr.Call(AgentMgrIF+".RequestDefaultAgent", 0, a.path); call.Err != nil {
		return nil, errors.Wrap(call.Err, "requesting default agent")
	}
	return a, nil
}

// Requests is the stream of pairing interactions, one outstanding at a
// time. On a nil Agent the stream is nil and never ready, which is how
// a failed registration degrades.
func (a *Agent) Requests() <-chan PairingRequest {
	if a == nil {
		return nil
	}
	return a.requests
}

// CancelPending aborts the outstanding interactive request, failing
// the daemon's blocked call.
func (a *Agent) CancelPending() {
	if a == nil {
		return
	}
	a.mu.Lock()
	if a.pending != nil {
		close(a.pending)
		a.pending = nil
	}
	a.mu.Unlock()
}

// ask parks an interactive request until it is answered or cancelled.
func (a *Agent) ask(kind common.PairingKind, device dbus.ObjectPath, code string) (PairingReply, *dbus.Error) {
	reply := make(chan PairingReply, 1)
	cancelled := make(chan struct{})

	a.mu.Lock()
	if a.pending != nil {
		// The daemon runs one pairing at a time; a leftover request
		// was orphaned. Drop it.
		close(a.pending)
	}
	a.pending = cancelled
	a.mu.Unlock()

	req := PairingRequest{
		Kind:    kind,
		Address: AddressFromPath(device),
		Code:    code,
		Reply:   reply,
	}
	select {
	case a.requests <- req:
	default:
		a.log.Warn("pairing request dropped, consumer not draining")
		return PairingReply{}, errAgentCanceled
	}

	select {
	case r, ok := <-reply:
		a.clearPending(cancelled)
		if !ok || !r.Accept {
			return PairingReply{}, errAgentRejected
		}
		return r, nil
	case <-cancelled:
		return PairingReply{}, errAgentCanceled
	}
}

// notify surfaces a display-only interaction.
func (a *Agent) notify(kind common.PairingKind, device dbus.ObjectPath, code string) {
	req := PairingRequest{Kind: kind, Address: AddressFromPath(device), Code: code}
	select {
	case a.requests <- req:
	default:
		a.log.Warn("pairing notification dropped, consumer not draining")
	}
}

// RequestConfirmation asks the user to confirm a passkey shown on both
// ends.
func (a *Agent) RequestConfirmation(device dbus.ObjectPath, passkey uint32) *dbus.Error {
	_, derr := a.ask(common.PairingConfirm, device, fmt.Sprintf("%06d", passkey))
	return derr
}

// RequestAuthorization asks the user to allow pairing with no code.
func (a *Agent) RequestAuthorization(device dbus.ObjectPath) *dbus.Error {
	_, derr := a.ask(common.PairingAuthorize, device, "")
	return derr
}

// RequestPinCode asks the user to type the device's PIN.
func (a *Agent) RequestPinCode(device dbus.ObjectPath) (string, *dbus.Error) {
	r, derr := a.ask(common.PairingRequestPin, device, "")
	if derr != nil {
		return "", derr
	}
	return r.Pin, nil
}

// RequestPasskey asks the user to type the device's numeric passkey.
func (a *Agent) RequestPasskey(device dbus.ObjectPath) (uint32, *dbus.Error) {
	r, derr := a.ask(common.PairingRequestPasskey, device, "")
	if derr != nil {
		return 0, derr
	}
	return r.Passkey, nil
}

// DisplayPinCode shows a PIN the user must enter on the device.
func (a *Agent) DisplayPinCode(device dbus.ObjectPath, pincode string) *dbus.Error {
	a.notify(common.PairingDisplayPin, device, pincode)
	return nil
}

// DisplayPasskey shows a passkey the user must enter on the device.
// The daemon re-calls this as digits are entered; only the first call
// is surfaced.
func (a *Agent) DisplayPasskey(device dbus.ObjectPath, passkey uint32, entered uint16) *dbus.Error {
	if entered == 0 {
		a.notify(common.PairingDisplayPasskey, device, fmt.Sprintf("%06d", passkey))
	}
	return nil
}

// AuthorizeService allows a service connection from a device the user
// already chose to pair or connect.
func (a *Agent) AuthorizeService(device dbus.ObjectPath, serviceUUID string) *dbus.Error {
	return nil
}

// Cancel is called by the daemon when the pairing ends before the user
// answered.
func (a *Agent) Cancel() *dbus.Error {
	a.log.Debug("pairing request cancelled by daemon")
	a.CancelPending()
	return nil
}

// Release is called by the daemon when the agent is unregistered.
func (a *Agent) Release() *dbus.Error {
	a.CancelPending()
	return nil
}

func (a *Agent) clearPending(own chan struct{}) {
	a.mu.Lock()
	if a.pending == own {
		a.pending = nil
	}
	a.mu.Unlock()
}
