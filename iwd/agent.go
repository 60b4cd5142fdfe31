package iwd

import (
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"wlcontrol/common"
)

const agentManagerPath = dbus.ObjectPath("/net/connman/iwd")

var errAgentCanceled = dbus.NewError("net.connman.iwd.Agent.Error.Canceled", nil)

// PassphraseRequest is one credential request from the daemon. The
// consumer sends the passphrase on Reply, or closes it to abort the
// connection attempt.
type PassphraseRequest struct {
	Network dbus.ObjectPath
	Reply   chan string
}

// Agent is the credential agent object exported on the bus. The daemon
// calls it mid-connect whenever a network needs a passphrase; the call
// blocks until the consumer answers through the request's Reply
// channel.
type Agent struct {
	path     dbus.ObjectPath
	requests chan PassphraseRequest
	log      common.Logger

	mu      sync.Mutex
	pending chan struct{}
}

// RegisterAgent exports a fresh agent object at a unique path and
// hands it to the daemon's agent manager.
func RegisterAgent(conn *dbus.Conn) (*Agent, error) {
	id := strings.ReplaceAll(uuid.NewString(), "-", "_")
	a := &Agent{
		path:     dbus.ObjectPath("/wlcontrol/agent/" + id),
		requests: make(chan PassphraseRequest, 4),
		log:      common.GetLogger().ChildLogger(map[string]interface{}{"mod": "iwd-agent"}),
	}

	if err := conn.Export(a, a.path, AgentIF); err != nil {
		return nil, errors.Wrap(err, "exporting agent object")
	}

	mgr := conn.Object(Dest, agentManagerPath)
	if call := mgr.Call(AgentMgrIF+".RegisterAgent", 0, a.path); call.Err != nil {
		return nil, errors.Wrap(call.Err, "registering agent")
	}
	return a, nil
}

// Requests is the stream of credential requests, one outstanding at a
// time. On a nil Agent the stream is nil and never ready, which is how
// a failed registration degrades.
func (a *Agent) Requests() <-chan PassphraseRequest {
	if a == nil {
		return nil
	}
	return a.requests
}

// CancelPending aborts the outstanding request from our side, failing
// the daemon's blocked call with a cancel error.
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

// RequestPassphrase is called by the daemon. It parks the call until
// the consumer answers or either side cancels.
func (a *Agent) RequestPassphrase(network dbus.ObjectPath) (string, *dbus.Error) {
	reply := make(chan string, 1)
	cancelled := make(chan struct{})

	a.mu.Lock()
	if a.pending != nil {
		// The daemon never overlaps requests; a leftover means the
		// previous one was orphaned. Drop it.
		close(a.pending)
	}
	a.pending = cancelled
	a.mu.Unlock()

	select {
	case a.requests <- PassphraseRequest{Network: network, Reply: reply}:
	default:
		a.log.Warn("passphrase request dropped, consumer not draining")
		return "", errAgentCanceled
	}

	select {
	case pass, ok := <-reply:
		a.clearPending(cancelled)
		if !ok {
			return "", errAgentCanceled
		}
		return pass, nil
	case <-cancelled:
		return "", errAgentCanceled
	}
}

// Cancel is called by the daemon when the connect attempt ends before
// the user answered.
func (a *Agent) Cancel(reason string) *dbus.Error {
	a.log.Debugf("agent request cancelled by daemon: %s", reason)
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
