package tracker

import "strings"

// Status is the coarse state of an application, read from the free-text
// status column.
type Status int

const (
	NotContacted Status = iota
	Review
	Progress
	Applied
	NoJobs
	Rejected
)

// Classify maps a free-text status cell to a Status. Matching is by
// substring, checked in a fixed order, so "applied - rejected" is Applied.
func Classify(status string) Status {
	s := strings.ToLower(status)
	switch {
	case strings.Contains(s, "done") || strings.Contains(s, "applied"):
		return Applied
	case strings.Contains(s, "reject"):
		return Rejected
	case strings.Contains(s, "review"):
		return Review
	case strings.Contains(s, "progress"):
		return Progress
	case strings.Contains(s, "nothing") || strings.Contains(s, "not available"):
		return NoJobs
	default:
		return NotContacted
	}
}

func (s Status) Label() string {
	switch s {
	case Applied:
		return "Applied"
	case Rejected:
		return "Rejected"
	case Review:
		return "Review"
	case Progress:
		return "Progress"
	case NoJobs:
		return "No jobs"
	default:
		return "NC"
	}
}

func (s Status) String() string { return s.Label() }

// Section groups statuses for display: open applications first, closed ones
// last.
func (s Status) Section() int {
	switch s {
	case Review, Progress:
		return 1
	case Applied:
		return 2
	case NoJobs:
		return 3
	case Rejected:
		return 4
	default:
		return 0
	}
}

// dedupPriority decides which row wins when a company appears twice.
func dedupPriority(status string) int {
	s := strings.ToLower(status)
	best := 0
	for _, p := range []struct {
		word  string
		score int
	}{{"review", 5}, {"progress", 4}, {"done", 3}, {"reject", 2}} {
		if strings.Contains(s, p.word) && p.score > best {
			best = p.score
		}
	}
	return best
}
