package store

import (
	"context"
	"errors"
	"testing"
)

func TestMemTransport_Contract(t *testing.T) {
	runTransportContract(t, NewMemTransport(), "mem/location")
}

func TestMemTransport_Calls(t *testing.T) {
	ctx := context.Background()
	m := NewMemTransport()

	_, _ = m.Exists(ctx, "a")
	_ = m.Write(ctx, "a", []byte("x"))
	_, _ = m.Read(ctx, "a")
	_, _ = m.Read(ctx, "a")

	exists, reads, writes := m.Calls()
	if exists != 1 || reads != 2 || writes != 1 {
		t.Errorf("expected calls (1,2,1), got (%d,%d,%d)", exists, reads, writes)
	}

	m.Put("b", []byte("y"))
	if _, _, writes := m.Calls(); writes != 1 {
		t.Errorf("expected Put to bypass the write counter, got %d writes", writes)
	}

	m.Reset()
	if e, r, w := m.Calls(); e+r+w != 0 {
		t.Error("expected counters cleared by Reset")
	}
	if _, ok := m.Get("a"); ok {
		t.Error("expected data cleared by Reset")
	}
}

func TestMemTransport_InjectedFaults(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk on fire")

	m := NewMemTransport()
	m.WriteErr = boom
	if err := m.Write(ctx, "a", []byte("x")); !errors.Is(err, boom) {
		t.Errorf("expected injected write error, got %v", err)
	}
	if _, ok := m.Get("a"); ok {
		t.Error("expected failed write to store nothing")
	}

	m.ExistsErr = boom
	if _, err := m.Exists(ctx, "a"); !errors.Is(err, boom) {
		t.Errorf("expected injected exists error, got %v", err)
	}
}

func TestMemTransport_List(t *testing.T) {
	ctx := context.Background()
	m := NewMemTransport()
	m.Put("jobs/b", []byte("1"))
	m.Put("jobs/a", []byte("1"))
	m.Put("other", []byte("1"))

	got, err := m.List(ctx, "jobs/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 2 || got[0] != "jobs/a" || got[1] != "jobs/b" {
		t.Errorf("unexpected list: %v", got)
	}
}
