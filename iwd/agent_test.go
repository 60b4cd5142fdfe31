package iwd

import (
	"testing"
	"time"

	"wlcontrol/common"
)

func newTestAgent() *Agent {
	return &Agent{
		path:     "/wlcontrol/agent/test",
		requests: make(chan PassphraseRequest, 4),
		log:      common.GetLogger(),
	}
}

func TestRequestPassphraseRoundTrip(t *testing.T) {
	a := newTestAgent()

	type result struct {
		pass string
		err  error
	}
	got := make(chan result, 1)
	go func() {
		pass, derr := a.RequestPassphrase("/net/connman/iwd/0/1/net_psk")
		if derr != nil {
			got <- result{err: derr}
			return
		}
		got <- result{pass: pass}
	}()

	select {
	case req := <-a.Requests():
		if req.Network != "/net/connman/iwd/0/1/net_psk" {
			t.Fatalf("wrong network in request: %v", req.Network)
		}
		req.Reply <- "hunter2"
	case <-time.After(time.Second):
		t.Fatal("request never surfaced")
	}

	select {
	case r := <-got:
		if r.err != nil {
			t.Fatalf("unexpected error: %v", r.err)
		}
		if r.pass != "hunter2" {
			t.Fatalf("got %q, want hunter2", r.pass)
		}
	case <-time.After(time.Second):
		t.Fatal("daemon call never returned")
	}
}

func TestRequestPassphraseUserCancel(t *testing.T) {
	a := newTestAgent()

	errs := make(chan error, 1)
	go func() {
		_, derr := a.RequestPassphrase("/net/1")
		if derr == nil {
			errs <- nil
			return
		}
		errs <- derr
	}()

	req := <-a.Requests()
	close(req.Reply)

	select {
	case err := <-errs:
		if err == nil {
			t.Fatal("cancelled request returned success")
		}
	case <-time.After(time.Second):
		t.Fatal("daemon call never returned")
	}
}

func TestRequestPassphraseDaemonCancel(t *testing.T) {
	a := newTestAgent()

	errs := make(chan error, 1)
	go func() {
		_, derr := a.RequestPassphrase("/net/1")
		if derr == nil {
			errs <- nil
			return
		}
		errs <- derr
	}()

	<-a.Requests()
	if derr := a.Cancel("user-canceled"); derr != nil {
		t.Fatalf("Cancel returned %v", derr)
	}

	select {
	case err := <-errs:
		if err == nil {
			t.Fatal("cancelled request returned success")
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
