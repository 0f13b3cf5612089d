package sampling

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/mfaircloth/toolcycle/completion"
)

// toolUseSignature computes a deterministic signature for a tool invocation
// (name + hash of input).
func toolUseSignature(name string, input json.RawMessage) string {
	h := sha256.Sum256(input)
	return fmt.Sprintf("%s:%x", name, h[:8])
}

// recentToolUseSignatures extracts signatures for the most recent tool
// invocations in the conversation, in chronological order.
func recentToolUseSignatures(conversation []completion.Message, count int) []string {
	var sigs []string
	for i := len(conversation) - 1; i >= 0 && len(sigs) < count; i-- {
		msg := conversation[i]
		if msg.Role != completion.RoleAssistant {
			continue
		}
		uses := msg.ToolUses()
		for j := len(uses) - 1; j >= 0 && len(sigs) < count; j-- {
			sigs = append(sigs, toolUseSignature(uses[j].Name, uses[j].Input))
		}
	}
	// Reverse to chronological order.
	for i, j := 0, len(sigs)-1; i < j; i, j = i+1, j-1 {
		sigs[i], sigs[j] = sigs[j], sigs[i]
	}
	return sigs
}

// DetectRepeat checks whether the last windowSize tool invocations follow a
// repeating pattern of length 1, 2, or 3.
func DetectRepeat(conversation []completion.Message, windowSize int) bool {
	sigs := recentToolUseSignatures(conversation, windowSize)
	if len(sigs) < windowSize {
		return false
	}

	for patternLen := 1; patternLen <= 3; patternLen++ {
		if windowSize%patternLen != 0 {
			continue
		}
		pattern := sigs[:patternLen]
		allMatch := true
		for i := patternLen; i < windowSize; i += patternLen {
			for j := 0; j < patternLen; j++ {
				if sigs[i+j] != pattern[j] {
					allMatch = false
					break
				}
			}
			if !allMatch {
				break
			}
		}
		if allMatch {
			return true
		}
	}

	return false
}
