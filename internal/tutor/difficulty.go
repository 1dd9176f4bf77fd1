package tutor

import (
	"fmt"
	"strconv"
	"strings"
)

// Difficulty is the question complexity requested from the content service.
type Difficulty int

const (
	DifficultyBasic Difficulty = iota + 1
	DifficultyFoundational
	DifficultyIntermediate
	DifficultyAdvanced
)

const (
	MinDifficulty = DifficultyBasic
	MaxDifficulty = DifficultyAdvanced
)

var difficultyNames = map[Difficulty]string{
	DifficultyBasic:        "Basic",
	DifficultyFoundational: "Foundational",
	DifficultyIntermediate: "Intermediate",
	DifficultyAdvanced:     "Advanced",
}

func (d Difficulty) String() string {
	if name, ok := difficultyNames[d]; ok {
		return name
	}
	return fmt.Sprintf("Difficulty(%d)", int(d))
}

var difficultyGuidance = map[Difficulty]string{
	DifficultyBasic:        "Recall and recognition: definitions, key terms and facts stated directly in the material.",
	DifficultyFoundational: "Comprehension: explain ideas in the learner's own words and connect closely related facts.",
	DifficultyIntermediate: "Application and analysis: use concepts in new situations, compare ideas, reason about causes.",
	DifficultyAdvanced:     "Synthesis and evaluation: combine concepts across topics, judge trade-offs, predict outcomes.",
}

// Guidance describes the kind of thinking expected at d, for prompts.
func (d Difficulty) Guidance() string {
	return difficultyGuidance[d]
}

// ParseDifficulty accepts a level number ("1".."4") or a name, case-insensitive.
func ParseDifficulty(s string) (Difficulty, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if d := Difficulty(n); d.Valid() {
			return d, nil
		}
		return 0, fmt.Errorf("difficulty %d out of range %d..%d", n, MinDifficulty, MaxDifficulty)
	}
	for d, name := range difficultyNames {
		if strings.EqualFold(name, s) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown difficulty %q", s)
}

// Valid reports whether d is within [MinDifficulty, MaxDifficulty].
func (d Difficulty) Valid() bool {
	return d >= MinDifficulty && d <= MaxDifficulty
}

// Decision is the outcome of a difficulty review.
type Decision int

const (
	DecisionNone Decision = iota
	DecisionIncrement
	DecisionDecrement
)

func (d Decision) String() string {
	switch d {
	case DecisionIncrement:
		return "increment"
	case DecisionDecrement:
		return "decrement"
	default:
		return "none"
	}
}

// Decide reviews a window of recent grades. Only a full window of WindowSize
// unanimous grades moves difficulty, and never past the bounds.
func Decide(window []Quality, current Difficulty) Decision {
	if len(window) != WindowSize {
		return DecisionNone
	}
	first := window[0]
	for _, q := range window[1:] {
		if q != first {
			return DecisionNone
		}
	}
	switch {
	case first == QualityStrong && current < MaxDifficulty:
		return DecisionIncrement
	case first == QualityNeedsWork && current > MinDifficulty:
		return DecisionDecrement
	}
	return DecisionNone
}

// Apply returns the difficulty after dec, clamped to the valid range.
func (d Difficulty) Apply(dec Decision) Difficulty {
	switch dec {
	case DecisionIncrement:
		d++
	case DecisionDecrement:
		d--
	}
	if d < MinDifficulty {
		return MinDifficulty
	}
	if d > MaxDifficulty {
		return MaxDifficulty
	}
	return d
}
