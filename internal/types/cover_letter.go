package types

// CoverLetter is a structured letter. Metadata is free-form so that refinement can nest
// the previous metadata under original_metadata.
type CoverLetter struct {
	Greeting       string         `json:"greeting"`
	Introduction   Section        `json:"introduction"`
	BodyParagraphs []Section      `json:"body_paragraphs"`
	Closing        Section        `json:"closing"`
	Signature      string         `json:"signature"`
	Metadata       map[string]any `json:"metadata"`
}

// Section is one paragraph of the letter with its intent
type Section struct {
	Content   string   `json:"content"`
	Purpose   string   `json:"purpose,omitempty"`
	KeyPoints []string `json:"key_points,omitempty"`
}

// Clone returns a deep copy of the letter. Nested metadata maps and slices are copied too.
func (c *CoverLetter) Clone() *CoverLetter {
	if c == nil {
		return nil
	}
	out := *c
	out.Introduction = c.Introduction.clone()
	out.Closing = c.Closing.clone()
	if c.BodyParagraphs != nil {
		out.BodyParagraphs = make([]Section, len(c.BodyParagraphs))
		for i, p := range c.BodyParagraphs {
			out.BodyParagraphs[i] = p.clone()
		}
	}
	out.Metadata = CloneMetadata(c.Metadata)
	return &out
}

func (s Section) clone() Section {
	if s.KeyPoints != nil {
		s.KeyPoints = append([]string(nil), s.KeyPoints...)
	}
	return s
}

// CloneMetadata deep-copies a metadata map. A nil map yields an empty one.
func CloneMetadata(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneMetadata(t)
	case map[string]string:
		m := make(map[string]string, len(t))
		for k, s := range t {
			m[k] = s
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = cloneValue(e)
		}
		return s
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
