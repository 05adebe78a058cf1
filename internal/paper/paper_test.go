package paper

import "testing"

func TestMarkFailedClearsExtracts(t *testing.T) {
	p := Paper{ID: "x", IntroText: "intro", SummaryText: "summary"}
	p.MarkFailed("boom")

	if p.ContentStatus != ContentFailed {
		t.Errorf("expected failed status, got %q", p.ContentStatus)
	}
	if p.IntroText != "" || p.SummaryText != "" {
		t.Error("expected extracts to be cleared on failure")
	}
	if p.ContentError != "boom" {
		t.Errorf("expected error 'boom', got %q", p.ContentError)
	}
}

func TestMarkOK(t *testing.T) {
	p := Paper{ID: "x"}
	if p.Processed() {
		t.Fatal("fresh record should not be processed")
	}

	p.MarkFailed("first attempt")
	p.MarkOK("intro", "summary")

	if !p.Processed() {
		t.Error("expected record to be processed")
	}
	if p.ContentStatus != ContentOK || p.ContentError != "" {
		t.Errorf("unexpected state: %q / %q", p.ContentStatus, p.ContentError)
	}
	if p.IntroText != "intro" || p.SummaryText != "summary" {
		t.Error("expected extracts to be stored")
	}
}
