package domain

// ErrorGroup collects the failures sharing one error class
type ErrorGroup struct {
	Class       string   `json:"class"`
	Count       int      `json:"count"`
	Identifiers []string `json:"identifiers"`
}

// ErrorSummary is the run-level report of processed identifiers and failures.
// Groups keep the order in which their class was first seen.
type ErrorSummary struct {
	Total     int          `json:"total"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Groups    []ErrorGroup `json:"groups"`

	index map[string]int
}

// NewErrorSummary creates an empty summary
func NewErrorSummary() *ErrorSummary {
	return &ErrorSummary{index: make(map[string]int)}
}

// RecordSuccess counts one identifier that produced a clean record
func (s *ErrorSummary) RecordSuccess() {
	s.Total++
	s.Succeeded++
}

// RecordFailure counts one failed identifier under its error class
func (s *ErrorSummary) RecordFailure(entry ErrorEntry) {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	s.Total++
	s.Failed++

	key := entry.GroupKey()
	i, ok := s.index[key]
	if !ok {
		i = len(s.Groups)
		s.index[key] = i
		s.Groups = append(s.Groups, ErrorGroup{Class: key})
	}
	s.Groups[i].Count++
	s.Groups[i].Identifiers = append(s.Groups[i].Identifiers, entry.Identifier)
}

// Group returns the group for a class key, if any
func (s *ErrorSummary) Group(class string) (ErrorGroup, bool) {
	if i, ok := s.index[class]; ok {
		return s.Groups[i], true
	}
	return ErrorGroup{}, false
}

// EntryFromRecord derives the summary entry for a record carrying an error note
func EntryFromRecord(record *CanonicalRecord) ErrorEntry {
	if record.Error == nil {
		return ErrorEntry{Identifier: record.ID}
	}
	return ErrorEntry{
		Identifier: record.ID,
		Class:      record.Error.Class,
		Message:    record.Error.Message,
		Status:     record.Error.Status,
	}
}
