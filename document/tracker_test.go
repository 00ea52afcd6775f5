package document

import "testing"

func TestTrackerKeepsMutationsDuringRender(t *testing.T) {
	tr := NewTracker()
	if !tr.IsDirty() {
		t.Fatalf("new tracker must be dirty")
	}

	gen := tr.Generation()
	if !tr.MarkClean(gen) || tr.IsDirty() {
		t.Fatalf("expected clean after MarkClean with current generation")
	}

	// render starts at gen, mutation lands mid-flight, render then succeeds
	gen = tr.Generation()
	tr.MarkDirty()
	if tr.MarkClean(gen) {
		t.Fatalf("stale generation must not clear the flag")
	}
	if !tr.IsDirty() {
		t.Fatalf("mutation during render was dropped")
	}
}

func TestParseKind(t *testing.T) {
	cases := map[string]Kind{
		"VIEW":     KindView,
		"text":     KindText,
		" Page ":   KindPage,
		"document": KindDocument,
		"CANVAS":   KindCanvas,
	}
	for tag, want := range cases {
		got, err := ParseKind(tag)
		if err != nil || got != want {
			t.Fatalf("ParseKind(%q) = %v, %v; want %v", tag, got, err, want)
		}
	}
	for _, tag := range []string{"ROOT", "svg", ""} {
		if _, err := ParseKind(tag); err == nil {
			t.Fatalf("ParseKind(%q) should fail", tag)
		}
	}
}
