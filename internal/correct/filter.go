package correct

import "grammar-ollama/internal/ollama"

// Section is the part of the model output a chunk belongs to.
type Section int

const (
	// SectionVisible output is shown to the user
	SectionVisible Section = iota
	// SectionSuppressed output is model reasoning and is dropped
	SectionSuppressed
)

// String returns the string representation of a section.
func (s Section) String() string {
	switch s {
	case SectionVisible:
		return "visible"
	case SectionSuppressed:
		return "suppressed"
	default:
		return "unknown"
	}
}

// ThinkingFilter drops the reasoning section of a chunk stream. Only chunks
// that exactly equal a sentinel switch sections; the stream starts visible.
type ThinkingFilter struct {
	section Section
}

// Section returns the section the next chunk will be attributed to.
func (f *ThinkingFilter) Section() Section {
	return f.section
}

// Reset returns the filter to the visible section.
func (f *ThinkingFilter) Reset() {
	f.section = SectionVisible
}

// Accept classifies one chunk. It returns the chunk and true when the chunk
// belongs to the visible output.
func (f *ThinkingFilter) Accept(chunk string) (string, bool) {
	switch chunk {
	case ollama.ThinkOpen:
		f.section = SectionSuppressed
		return "", false
	case ollama.ThinkClose:
		f.section = SectionVisible
		return "", false
	}

	if f.section == SectionSuppressed {
		return "", false
	}
	return chunk, true
}
