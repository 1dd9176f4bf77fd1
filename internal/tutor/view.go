package tutor

// View is a read-only snapshot of a session for renderers.
type View struct {
	Phase Phase
	Busy  bool

	QuestionNumber  int
	Attempts        int
	HintsUsed       int
	HintsRemaining  int
	HintAvailable   bool
	Difficulty      Difficulty
	DifficultyShift Decision
	CurrentQuestion string
	Topics          []string
	ExploredTopics  []string

	Transcript []Entry

	CanRetry bool
	RetryOp  string
	Error    string
	Notice   string
}

// View returns a snapshot of the session.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Phase:           c.phase,
		Busy:            c.busy,
		DifficultyShift: c.change,
		Transcript:      c.transcript.All(),
		CanRetry:        c.retry != nil && !c.busy,
		RetryOp:         c.retryOp,
		Error:           c.lastErr,
		Notice:          c.notice,
	}
	if s := c.state; s != nil {
		v.QuestionNumber = s.QuestionNumber
		v.Attempts = s.Attempts
		v.HintsUsed = s.HintsUsed
		v.HintsRemaining = s.HintsRemaining()
		v.Difficulty = s.Difficulty
		v.CurrentQuestion = s.CurrentQuestion
		v.Topics = append([]string(nil), s.Topics...)
		v.ExploredTopics = s.Explored()
		v.HintAvailable = c.phase == PhaseAwaitingAnswer && s.CurrentQuestion != "" && s.HintsUsed < MaxHints
	}
	return v
}
