package activity

import (
	"strings"
	"testing"
)

func TestCostForActionCall(t *testing.T) {
	rec, ok := CostForAction("call", "")
	if !ok {
		t.Fatal("expected call to be metered")
	}
	if rec.Service != ServiceVoice || rec.Quantity != 1 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.TotalCostCents != rec.UnitCostCents {
		t.Fatalf("single call total %v != unit %v", rec.TotalCostCents, rec.UnitCostCents)
	}
}

func TestCostForActionSMSSegments(t *testing.T) {
	rec, ok := CostForAction("sms", strings.Repeat("a", 154))
	if !ok {
		t.Fatal("expected sms to be metered")
	}
	if rec.Quantity != 2 {
		t.Fatalf("expected 2 segments for 154 chars, got %v", rec.Quantity)
	}
	if rec.TotalCostCents != 2*rec.UnitCostCents {
		t.Fatalf("total %v != 2x unit", rec.TotalCostCents)
	}
}

func TestCostForActionUnmeteredNotify(t *testing.T) {
	if _, ok := CostForAction("notify", ""); ok {
		t.Fatal("notify must not produce a cost record")
	}
}

func TestCostForActionEmptySMSBodyStillOneSegment(t *testing.T) {
	rec, _ := CostForAction("sms", "")
	if rec.Quantity != 1 {
		t.Fatalf("expected minimum 1 segment, got %v", rec.Quantity)
	}
}
