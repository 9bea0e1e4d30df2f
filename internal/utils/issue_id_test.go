package utils

import "testing"

func TestFormatIssueID(t *testing.T) {
	got := FormatIssueID("backend", 12)
	if got != "backend#12" {
		t.Errorf("FormatIssueID() = %q, want backend#12", got)
	}
}

func TestSplitIssueID(t *testing.T) {
	project, seq, err := SplitIssueID("backend#42")
	if err != nil {
		t.Fatalf("SplitIssueID() error: %v", err)
	}
	if project != "backend" || seq != 42 {
		t.Errorf("SplitIssueID() = (%q, %d), want (backend, 42)", project, seq)
	}

	bad := []string{"", "backend", "backend#", "#1", "backend#0", "backend#-3", "backend#x"}
	for _, id := range bad {
		if _, _, err := SplitIssueID(id); err == nil {
			t.Errorf("SplitIssueID(%q) succeeded, want error", id)
		}
	}
}
