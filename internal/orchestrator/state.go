package orchestrator

// State is one of Idle, Enhancing, ReviewingEnhanced, Generating, Modifying
// or Failed.
type State interface {
	Name() string
	busy() bool
}

// Idle waits for a prompt.
type Idle struct{}

// Enhancing waits for the enhanced version of Prompt.
type Enhancing struct {
	Prompt string
}

// ReviewingEnhanced holds both levels of intent until the user confirms or
// cancels. Enhanced is editable.
type ReviewingEnhanced struct {
	Original string
	Enhanced string
}

// Generating waits for a page generated from Prompt.
type Generating struct {
	Prompt       string
	UsedEnhanced bool
}

// Modifying waits for the current page with Prompt applied.
type Modifying struct {
	Prompt string
}

// Failed holds the error of the last call and the call to retry.
// Pending is a Generating or Modifying state.
type Failed struct {
	Err     error
	Pending State
}

func (Idle) Name() string              { return "Idle" }
func (Enhancing) Name() string         { return "Enhancing" }
func (ReviewingEnhanced) Name() string { return "ReviewingEnhanced" }
func (Generating) Name() string        { return "Generating" }
func (Modifying) Name() string         { return "Modifying" }
func (Failed) Name() string            { return "Error" }

func (Idle) busy() bool              { return false }
func (Enhancing) busy() bool         { return true }
func (ReviewingEnhanced) busy() bool { return false }
func (Generating) busy() bool        { return true }
func (Modifying) busy() bool         { return true }
func (Failed) busy() bool            { return false }

// Prompt returns the prompt the failed call was made with.
func (f Failed) Prompt() string {
	switch p := f.Pending.(type) {
	case Generating:
		return p.Prompt
	case Modifying:
		return p.Prompt
	}
	return ""
}
