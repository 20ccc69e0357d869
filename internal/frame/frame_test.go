package frame

import (
	"testing"

	"spirvm/internal/data"
)

func TestIncPCBlocksOnUnconsumedArgs(t *testing.T) {
	args := []data.Data{data.Undefined(), data.Undefined()}
	f := New(0, args, 0, nil)
	if err := f.IncPC(); err == nil {
		t.Fatalf("expected error incrementing PC before args consumed")
	}
	if _, err := f.NextArg(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.NextArg(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.IncPC(); err != nil {
		t.Fatalf("expected IncPC to succeed once all args consumed: %v", err)
	}
	if f.PC() != 1 {
		t.Fatalf("expected pc 1, got %d", f.PC())
	}
}

func TestNextArgExhaustion(t *testing.T) {
	f := New(0, nil, 0, nil)
	if _, err := f.NextArg(); err == nil {
		t.Fatalf("expected error pulling an argument with none available")
	}
}

func TestSetLabelShiftsLastLabel(t *testing.T) {
	f := New(0, nil, 0, nil)
	f.SetLabel(10)
	f.SetLabel(20)
	if f.LastLabel() != 10 {
		t.Fatalf("expected last label 10, got %d", f.LastLabel())
	}
	if f.CurLabel() != 20 {
		t.Fatalf("expected current label 20, got %d", f.CurLabel())
	}
}

func TestIsCallableReturnRequiresNilHitAttribute(t *testing.T) {
	f := New(0, nil, 0, nil)
	f.TriggerRaytrace(RTCallable, 0, nil, "pending", nil)
	if f.IsCallableReturn() {
		t.Fatalf("should not be a callable return while hit attribute is set")
	}
	f.RT.HitAttribute = nil
	if !f.IsCallableReturn() {
		t.Fatalf("should be a callable return once hit attribute is cleared")
	}
}

func TestStackPushPopOrder(t *testing.T) {
	s := NewStack()
	a := New(0, nil, 0, nil)
	b := New(1, nil, 0, nil)
	s.Push(a)
	s.Push(b)
	top, ok := s.Top()
	if !ok || top != b {
		t.Fatalf("expected top frame to be b")
	}
	popped, err := s.Pop()
	if err != nil || popped != b {
		t.Fatalf("expected to pop b, got %v err=%v", popped, err)
	}
	if s.Depth() != 1 {
		t.Fatalf("expected depth 1 after pop, got %d", s.Depth())
	}
}

func TestStackPopEmptyErrors(t *testing.T) {
	s := NewStack()
	if _, err := s.Pop(); err == nil {
		t.Fatalf("expected error popping empty stack")
	}
}
