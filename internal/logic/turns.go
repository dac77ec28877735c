package logic

// Round-robin tuning
const (
	// SkipTurnChance is the probability a non-leading construct sits a round out
	SkipTurnChance = 0.1
	// AutoReplyChance is the probability of a second round when auto-reply is on
	AutoReplyChance = 0.25
	// MaxGenerationAttempts bounds retries for one construct's turn
	MaxGenerationAttempts = 10
)

// NoResponsePlaceholder replaces a turn whose generation attempts were exhausted
const NoResponsePlaceholder = "**No response from LLM within 10 tries. Check your endpoint and try again.**"

// ConstructModeNotice is sent when the conversation is in Construct mode
const ConstructModeNotice = "Construct Mode is not yet implemented."

// ShouldSkipTurn decides whether the construct at position index in this
// round's order skips its turn, given a uniform roll in [0,1). The leading
// construct never skips.
func ShouldSkipTurn(index int, roll float64) bool {
	return index != 0 && roll < SkipTurnChance
}

// ShouldAutoReply decides whether a second round-robin pass runs
func ShouldAutoReply(enabled bool, roll float64) bool {
	return enabled && roll < AutoReplyChance
}
