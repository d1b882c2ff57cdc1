package domain

import "strings"

// A modification turn is stored as the change request wrapped in fixed
// guidance, so history readers can recover the request text.
const (
	modifyPreamble = "I need you to make a SPECIFIC change to the above HTML code. Please modify ONLY what I'm asking for and keep everything else exactly the same.\n\nRequested change: "
	modifyReminder = "\n\nRemember: Only change what's needed for this specific request. Don't rewrite or restructure other parts of the code."
)

// ModifyInstruction wraps change in the modification guidance.
func ModifyInstruction(change string) string {
	return modifyPreamble + change + modifyReminder
}

// RequestedChange recovers the change request from a stored modification
// instruction.
func RequestedChange(content string) (string, bool) {
	if !strings.HasPrefix(content, modifyPreamble) || !strings.HasSuffix(content, modifyReminder) {
		return "", false
	}
	return content[len(modifyPreamble) : len(content)-len(modifyReminder)], true
}
