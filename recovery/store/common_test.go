package store

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

// runTransportContract exercises the behavior every Transport must share.
func runTransportContract(t *testing.T, tr Transport, location string) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing location", func(t *testing.T) {
		ok, err := tr.Exists(ctx, location)
		if err != nil {
			t.Fatalf("Exists failed: %v", err)
		}
		if ok {
			t.Fatal("expected location to be absent")
		}

		_, err = tr.Read(ctx, location)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("write then read", func(t *testing.T) {
		payload := []byte{0x81, 0xa1, 'a', 0x01}
		if err := tr.Write(ctx, location, payload); err != nil {
			t.Fatalf("Write failed: %v", err)
		}

		ok, err := tr.Exists(ctx, location)
		if err != nil || !ok {
			t.Fatalf("expected location to exist, ok=%v err=%v", ok, err)
		}

		got, err := tr.Read(ctx, location)
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if !bytes.Equal(got, payload) {
			t.Errorf("expected %v, got %v", payload, got)
		}
	})

	t.Run("write replaces previous content", func(t *testing.T) {
		if err := tr.Write(ctx, location, []byte("a much longer first payload")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if err := tr.Write(ctx, location, []byte("short")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}

		got, err := tr.Read(ctx, location)
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if string(got) != "short" {
			t.Errorf("expected full replacement, got %q", got)
		}
	})

	if rm, ok := tr.(Remover); ok {
		t.Run("remove", func(t *testing.T) {
			if err := rm.Remove(ctx, location); err != nil {
				t.Fatalf("Remove failed: %v", err)
			}
			ok, err := tr.Exists(ctx, location)
			if err != nil {
				t.Fatalf("Exists failed: %v", err)
			}
			if ok {
				t.Error("expected location to be gone after Remove")
			}
			if err := rm.Remove(ctx, location); err != nil {
				t.Errorf("expected second Remove to succeed, got %v", err)
			}
		})
	}
}
