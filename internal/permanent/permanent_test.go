package permanent

import (
	"errors"
	"fmt"
	"testing"
)

func TestMarkAndIs(t *testing.T) {
	t.Parallel()

	root := errors.New("bad request")
	marked := Mark(root)
	if !Is(marked) {
		t.Fatalf("expected marked error to be permanent")
	}
	if !errors.Is(marked, root) {
		t.Fatalf("expected marked error to unwrap to root")
	}
	wrapped := fmt.Errorf("fetch: %w", marked)
	if !Is(wrapped) {
		t.Fatalf("expected wrapped marker to stay permanent")
	}
	if Mark(marked) != marked {
		t.Fatalf("expected double mark to be a no-op")
	}
}

func TestNilAndPlainErrors(t *testing.T) {
	t.Parallel()

	if Mark(nil) != nil {
		t.Fatalf("expected nil for nil input")
	}
	if Is(nil) {
		t.Fatalf("nil must not be permanent")
	}
	if Is(errors.New("timeout")) {
		t.Fatalf("plain error must not be permanent")
	}
	if Wrap("decode", nil) != nil {
		t.Fatalf("expected nil for nil wrap")
	}
	if (Error{}).Error() != "permanent error" {
		t.Fatalf("unexpected empty message %q", (Error{}).Error())
	}
}

func TestWrapLabelsOperation(t *testing.T) {
	t.Parallel()

	root := errors.New("unexpected EOF")
	wrapped := Wrap("decode payload", root)
	if !Is(wrapped) || !errors.Is(wrapped, root) {
		t.Fatalf("expected permanent wrapper over root, got %v", wrapped)
	}
	if wrapped.Error() != "decode payload: unexpected EOF" {
		t.Fatalf("unexpected message %q", wrapped.Error())
	}
	relabeled := Wrap("fetch", Mark(root))
	if relabeled.Error() != "fetch: unexpected EOF" {
		t.Fatalf("unexpected relabeled message %q", relabeled.Error())
	}

	built := Errorf("unsupported action %q", "JUMP")
	if !Is(built) || built.Error() != `unsupported action "JUMP"` {
		t.Fatalf("unexpected formatted error %v", built)
	}
}
