package tutor

// Phase is the dialogue controller's position in the session lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseIntroPending
	PhaseAwaitingQuestion
	PhaseAwaitingAnswer
	PhaseGrading
	PhaseExplaining
	PhaseHinting
	PhaseAdvancing
)

var phaseNames = [...]string{
	PhaseIdle:             "idle",
	PhaseIntroPending:     "intro_pending",
	PhaseAwaitingQuestion: "awaiting_question",
	PhaseAwaitingAnswer:   "awaiting_answer",
	PhaseGrading:          "grading",
	PhaseExplaining:       "explaining",
	PhaseHinting:          "hinting",
	PhaseAdvancing:        "advancing",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// transitions lists the legal moves out of each phase. Reset to PhaseIdle is
// legal from every phase and is not listed.
var transitions = map[Phase][]Phase{
	PhaseIdle:             {PhaseIntroPending},
	PhaseIntroPending:     {PhaseAwaitingQuestion},
	PhaseAwaitingQuestion: {PhaseAwaitingAnswer},
	PhaseAwaitingAnswer:   {PhaseGrading, PhaseHinting},
	PhaseGrading:          {PhaseExplaining, PhaseAwaitingAnswer, PhaseAdvancing},
	PhaseExplaining:       {PhaseAdvancing, PhaseAwaitingAnswer},
	PhaseHinting:          {PhaseAwaitingAnswer},
	PhaseAdvancing:        {PhaseAwaitingQuestion},
}

// CanTransition reports whether the machine may move from one phase to another.
func CanTransition(from, to Phase) bool {
	if to == PhaseIdle {
		return true
	}
	for _, p := range transitions[from] {
		if p == to {
			return true
		}
	}
	return false
}
