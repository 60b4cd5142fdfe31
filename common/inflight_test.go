package common

import (
	"context"
	"testing"
	"time"
)

func TestOpSlotCancelsPrevious(t *testing.T) {
	var slot OpSlot

	ctx1, done1 := slot.Begin(context.Background())
	defer done1()

	ctx2, done2 := slot.Begin(context.Background())
	defer done2()

	select {
	case <-ctx1.Done():
	case <-time.After(time.Second):
		t.Fatal("first operation was not cancelled by the second")
	}

	select {
	case <-ctx2.Done():
		t.Fatal("second operation cancelled prematurely")
	default:
	}
}

func TestOpSlotDoneVacates(t *testing.T) {
	var slot OpSlot

	_, done := slot.Begin(context.Background())
	if !slot.Active() {
		t.Fatal("slot should be active while the operation runs")
	}
	done()
	if slot.Active() {
		t.Fatal("slot should be vacant after the operation settles")
	}
}

func TestOpSlotStaleDoneKeepsNewOp(t *testing.T) {
	var slot OpSlot

	_, done1 := slot.Begin(context.Background())
	ctx2, done2 := slot.Begin(context.Background())
	defer done2()

	// Settling the replaced operation must not evict the live one.
	done1()
	if !slot.Active() {
		t.Fatal("stale done vacated the slot occupied by a newer operation")
	}

	select {
	case <-ctx2.Done():
		t.Fatal("stale done cancelled the newer operation")
	default:
	}
}

func TestOpSlotCancel(t *testing.T) {
	var slot OpSlot

	ctx, done := slot.Begin(context.Background())
	defer done()

	slot.Cancel()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("Cancel did not abort the operation")
	}
	if slot.Active() {
		t.Fatal("slot still active after Cancel")
	}
}
