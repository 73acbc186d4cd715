package httpmsg

import "testing"

func TestCancellationToken_Idempotent(t *testing.T) {
	tok := NewCancellationToken()
	if tok.IsCancelled() {
		t.Fatal("fresh token reports IsCancelled() = true")
	}

	tok.Cancel("first")
	tok.Cancel("second")

	if !tok.IsCancelled() {
		t.Fatal("cancelled token reports IsCancelled() = false")
	}
	if tok.Reason() != "first" {
		t.Fatalf("Reason() = %q, want %q (first writer wins)", tok.Reason(), "first")
	}
}

func TestCancellationToken_ParentCancelsChild(t *testing.T) {
	parent := NewCancellationToken()
	child := parent.Child()

	parent.Cancel("parent down")

	if !child.IsCancelled() {
		t.Fatal("child not cancelled after parent cancellation")
	}
}

func TestCancellationToken_ChildCancelDoesNotAffectParentOrSiblings(t *testing.T) {
	parent := NewCancellationToken()
	childA := parent.Child()
	childB := parent.Child()

	childA.Cancel("attempt A lost")

	if parent.IsCancelled() {
		t.Fatal("parent cancelled by child cancellation")
	}
	if childB.IsCancelled() {
		t.Fatal("sibling cancelled by unrelated child cancellation")
	}
}

func TestCancellationToken_ThrowIfCancelled(t *testing.T) {
	tok := NewCancellationToken()
	if err := tok.ThrowIfCancelled(); err != nil {
		t.Fatalf("ThrowIfCancelled() on live token = %v", err)
	}

	tok.Cancel("bye")
	err := tok.ThrowIfCancelled()
	if err == nil {
		t.Fatal("ThrowIfCancelled() on cancelled token returned nil")
	}
}
