package conversation

// window bounds a log to its most recent maxTurns entries so prompts stay
// within the model's context limits. Truncation is strictly by turn count,
// never by token count; a single oversized turn (an injected document) passes
// through unwindowed, which is why document injection is size-capped upstream.
func window(turns []Turn, maxTurns int) []Turn {
	if maxTurns <= 0 || len(turns) == 0 {
		return nil
	}
	if len(turns) <= maxTurns {
		return turns
	}
	return turns[len(turns)-maxTurns:]
}
