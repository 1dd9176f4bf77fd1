package tutor

import "fmt"

// Quality classifies one graded answer.
type Quality string

const (
	QualityStrong    Quality = "strong"
	QualityPartial   Quality = "partial"
	QualityNeedsWork Quality = "needs_work"
)

// ParseQuality converts a grader label into a Quality.
func ParseQuality(s string) (Quality, error) {
	switch q := Quality(s); q {
	case QualityStrong, QualityPartial, QualityNeedsWork:
		return q, nil
	}
	return "", fmt.Errorf("unknown quality %q", s)
}

// Outcome is what the grading service returns for one answer.
type Outcome struct {
	Quality  Quality
	Feedback string
}

// timeoutOutcome stands in for a grade when the grader does not answer in time.
func timeoutOutcome() Outcome {
	return Outcome{
		Quality:  QualityNeedsWork,
		Feedback: "We couldn't grade that answer in time. Try refining it and submitting again.",
	}
}
