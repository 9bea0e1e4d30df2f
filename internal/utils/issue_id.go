// Package utils provides helpers for composing and splitting issue IDs.
package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatIssueID composes an issue ID like ("backend", 12) -> "backend#12".
func FormatIssueID(project string, seq int) string {
	return fmt.Sprintf("%s#%d", project, seq)
}

// SplitIssueID splits an issue ID into project and sequence, reporting an
// error when the ID is not of the form <project>#<positive integer>.
func SplitIssueID(issueID string) (project string, seq int, err error) {
	idx := strings.Index(issueID, "#")
	if idx <= 0 || idx == len(issueID)-1 {
		return "", 0, fmt.Errorf("malformed issue ID %q: want <project>#<number>", issueID)
	}
	seq, err = strconv.Atoi(issueID[idx+1:])
	if err != nil || seq < 1 {
		return "", 0, fmt.Errorf("malformed issue ID %q: sequence must be a positive integer", issueID)
	}
	return issueID[:idx], seq, nil
}
