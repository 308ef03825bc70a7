package reconcile

// Decision is the tri-state merge consent for one load session.
type Decision int

const (
	// Unasked means the user has not been prompted yet.
	Unasked Decision = iota
	// Accepted means new fields are merged for the rest of the session.
	Accepted
	// Declined means insertion is skipped for the rest of the session. The
	// new fields remain available in the template; they are simply not
	// appended this time.
	Declined
)

// FieldPrompt describes the first discovery that triggers the single
// new-fields confirmation.
type FieldPrompt struct {
	SectionTitle string
	FieldName    string
}

// Asker resolves a merge prompt. Implementations typically put a question
// to the user; tests script the answers.
type Asker interface {
	ConfirmNewFields(p FieldPrompt) bool
	ConfirmNewSections(titles []string) bool
}

// Session carries the ask-once merge decision across every section and
// group diff of a single load. The first discovery of new fields asks the
// user; every later discovery in the same session reuses the answer.
type Session struct {
	asker Asker
	state Decision
}

// NewSession returns a session in the Unasked state. A nil asker declines
// everything.
func NewSession(asker Asker) *Session {
	return &Session{asker: asker}
}

// State exposes the current decision, mostly for status reporting.
func (s *Session) State() Decision { return s.state }

// ApproveFields resolves whether newly discovered fields should be merged.
// Only the first call can prompt; insertion is never speculative, so
// callers must not append nodes before this returns true.
func (s *Session) ApproveFields(p FieldPrompt) bool {
	switch s.state {
	case Accepted:
		return true
	case Declined:
		return false
	}
	if s.asker != nil && s.asker.ConfirmNewFields(p) {
		s.state = Accepted
		return true
	}
	s.state = Declined
	return false
}

// ApproveSections resolves the whole-document batch of new sections. It is
// independent of the field decision and asked at most once per load, which
// DiffSections running once per document already guarantees.
func (s *Session) ApproveSections(titles []string) bool {
	if len(titles) == 0 {
		return false
	}
	return s.asker != nil && s.asker.ConfirmNewSections(titles)
}
