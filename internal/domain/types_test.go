package domain

import "testing"

func TestRoleValid(t *testing.T) {
	if !RolePatient.Valid() || !RoleDoctor.Valid() {
		t.Fatalf("expected patient and doctor to be valid roles")
	}
	if Role("admin").Valid() {
		t.Fatalf("unknown role must not validate")
	}
	if Role("").Valid() {
		t.Fatalf("empty role must not validate")
	}
}

func TestContentTypeValid(t *testing.T) {
	for _, ct := range []ContentType{ContentTypeText, ContentTypeImage, ContentTypeFile, ContentTypeStructuredNote} {
		if !ct.Valid() {
			t.Fatalf("%s should be valid", ct)
		}
	}
	if ContentType("video").Valid() {
		t.Fatalf("unknown content type must not validate")
	}
}

func TestDeliveryStateOnlyMovesForward(t *testing.T) {
	cases := []struct {
		from, to DeliveryState
		ok       bool
	}{
		{DeliveryStateSent, DeliveryStateDelivered, true},
		{DeliveryStateSent, DeliveryStateRead, true},
		{DeliveryStateDelivered, DeliveryStateRead, true},
		{DeliveryStateDelivered, DeliveryStateSent, false},
		{DeliveryStateRead, DeliveryStateDelivered, false},
		{DeliveryStateRead, DeliveryStateSent, false},
		{DeliveryStateSent, DeliveryStateSent, true},
		{DeliveryStateRead, DeliveryStateRead, true},
	}
	for _, c := range cases {
		if got := c.from.CanAdvanceTo(c.to); got != c.ok {
			t.Errorf("CanAdvanceTo(%s -> %s) = %v, want %v", c.from, c.to, got, c.ok)
		}
	}
}

func TestDeliveryStateAdvanceIgnoresBackwardMoves(t *testing.T) {
	if got := DeliveryStateRead.Advance(DeliveryStateSent); got != DeliveryStateRead {
		t.Fatalf("backward advance changed state to %s", got)
	}
	if got := DeliveryStateSent.Advance(DeliveryStateDelivered); got != DeliveryStateDelivered {
		t.Fatalf("forward advance gave %s", got)
	}
	if got := DeliveryState("bogus").Advance(DeliveryStateRead); got != DeliveryState("bogus") {
		t.Fatalf("unknown state should not advance, got %s", got)
	}
}
