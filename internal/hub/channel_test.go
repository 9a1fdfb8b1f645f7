package hub

import "testing"

func TestNewChannelStartsWithUsageOne(t *testing.T) {
	c := newChannel()
	if c.HasNoUsage() {
		t.Fatalf("freshly constructed channel reports no usage")
	}
}

func TestChannelIncDecUsage(t *testing.T) {
	c := newChannel()
	c.IncUsage() // usage = 2

	if mightBeZero := c.DecUsage(); mightBeZero { // usage = 1
		t.Fatalf("DecUsage reported possible zero with usage still at 1")
	}
	if c.HasNoUsage() {
		t.Fatalf("HasNoUsage true while usage is 1")
	}

	if mightBeZero := c.DecUsage(); !mightBeZero { // usage = 0
		t.Fatalf("DecUsage did not report possible zero when usage reached 0")
	}
	if !c.HasNoUsage() {
		t.Fatalf("HasNoUsage false after usage reached 0")
	}
}
