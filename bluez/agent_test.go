package bluez

import (
	"testing"
	"time"

	"wlcontrol/common"
)

func newTestAgent() *Agent {
	return &Agent{
		path:     "/wlcontrol/btagent/test",
		requests: make(chan PairingRequest, 4),
		log:      common.GetLogger(),
	}
}

const testDevPath = "/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF"

func TestRequestConfirmationAccept(t *testing.T) {
	a := newTestAgent()

	errs := make(chan error, 1)
	go func() {
		derr := a.RequestConfirmation(testDevPath, 123456)
		if derr == nil {
			errs <- nil
			return
		}
		errs <- derr
	}()

	select {
	case req := <-a.Requests():
		if req.Kind != common.PairingConfirm {
			t.Fatalf("wrong kind: %v", req.Kind)
		}
		if req.Address != "AA:BB:CC:DD:EE:FF" {
			t.Fatalf("wrong address: %q", req.Address)
		}
		if req.Code != "123456" {
			t.Fatalf("wrong code: %q", req.Code)
		}
		req.Reply <- PairingReply{Accept: true}
	case <-time.After(time.Second):
		t.Fatal("request never surfaced")
	}

	if err := <-errs; err != nil {
		t.Fatalf("accepted confirmation returned %v", err)
	}
}

func TestRequestConfirmationPadsPasskey(t *testing.T) {
	a := newTestAgent()

	go func() {
		_ = a.RequestConfirmation(testDevPath, 42)
	}()

	req := <-a.Requests()
	if req.Code != "000042" {
		t.Fatalf("passkey not zero padded: %q", req.Code)
	}
	req.Reply <- PairingReply{Accept: true}
}

func TestRequestPinCodeReject(t *testing.T) {
	a := newTestAgent()

	errs := make(chan error, 1)
	go func() {
		_, derr := a.RequestPinCode(testDevPath)
		if derr == nil {
			errs <- nil
			return
		}
		errs <- derr
	}()

	req := <-a.Requests()
	if req.Kind != common.PairingRequestPin {
		t.Fatalf("wrong kind: %v", req.Kind)
	}
	close(req.Reply)

	if err := <-errs; err == nil {
		t.Fatal("rejected pin request returned success")
	}
}

func TestRequestPasskeyAnswer(t *testing.T) {
	a := newTestAgent()

	got := make(chan uint32, 1)
	go func() {
		key, derr := a.RequestPasskey(testDevPath)
		if derr != nil {
			got <- 0
			return
		}
		got <- key
	}()

	req := <-a.Requests()
	req.Reply <- PairingReply{Accept: true, Passkey: 901234}

	if key := <-got; key != 901234 {
		t.Fatalf("got passkey %d", key)
	}
}

func TestDisplayPasskeyOnlyFirstCallSurfaces(t *testing.T) {
	a := newTestAgent()

	if derr := a.DisplayPasskey(testDevPath, 7, 0); derr != nil {
		t.Fatalf("DisplayPasskey returned %v", derr)
	}
	if derr := a.DisplayPasskey(testDevPath, 7, 3); derr != nil {
		t.Fatalf("DisplayPasskey returned %v", derr)
	}

	select {
	case req := <-a.Requests():
		if req.Kind != common.PairingDisplayPasskey || req.Code != "000007" {
			t.Fatalf("wrong request: %+v", req)
		}
		if req.Reply != nil {
			t.Fatal("display request must not carry a reply channel")
		}
	default:
		t.Fatal("first display call never surfaced")
	}

	select {
	case <-a.Requests():
		t.Fatal("re-entered digits surfaced a second request")
	default:
	}
}

func TestDaemonCancelUnblocksPending(t *testing.T) {
	a := newTestAgent()

	errs := make(chan error, 1)
	go func() {
		derr := a.RequestAuthorization(testDevPath)
		if derr == nil {
			errs <- nil
			return
		}
		errs <- derr
	}()

	<-a.Requests()
	if derr := a.Cancel(); derr != nil {
		t.Fatalf("Cancel returned %v", derr)
	}

	select {
	case err := <-errs:
		if err == nil {
			t.Fatal("cancelled authorization returned success")
		}
	case <-time.After(time.Second):
		t.Fatal("daemon call never returned")
	}
}

func TestNilAgentIsInert(t *testing.T) {
	var a *Agent
	if a.Requests() != nil {
		t.Fatal("nil agent returned a live request stream")
	}
	// Must be a no-op rather than a panic.
	a.CancelPending()
}
