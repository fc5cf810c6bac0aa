package util

import "testing"

func TestHashContentStable(t *testing.T) {
	a := HashContent([]byte("hello"))
	b := HashContent([]byte("hello"))
	if a != b {
		t.Fatalf("expected stable hash, got %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
	if HashContent([]byte("hello")) == HashContent([]byte("hellp")) {
		t.Fatal("expected distinct payloads to hash differently")
	}
}

func TestSanitizeFileName(t *testing.T) {
	if _, err := SanitizeFileName("../etc/passwd"); err == nil {
		t.Fatal("expected traversal rejection")
	}
	if _, err := SanitizeFileName("   "); err == nil {
		t.Fatal("expected empty name rejection")
	}
	got, err := SanitizeFileName("my book/draft.pdf")
	if err != nil {
		t.Fatalf("SanitizeFileName: %v", err)
	}
	if got != "my book_draft.pdf" {
		t.Fatalf("unexpected sanitized name %q", got)
	}
}
