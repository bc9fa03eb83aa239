package rule

// Document is one security-rule document: a generic mapping tree as decoded
// from JSON or YAML. Keys the validator does not know about are preserved
// through every transform.
type Document map[string]any

// serverOwnedFields are assigned by the remote service and rejected on write.
var serverOwnedFields = []string{"id", "createdAt", "createdBy", "updatedAt", "updatedBy"}

// Title returns the document's title, or the empty string if the title is
// missing or not text.
func (d Document) Title() string {
	s, _ := d["title"].(string)
	return s
}

// Clone returns a deep copy of the document. Mappings and sequences are
// copied recursively; scalars are shared (they are immutable).
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case Document:
		return val.Clone()
	case map[string]any:
		return Document(val).Clone()
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// asMapping reports whether v is a mapping node and returns it as a Document.
func asMapping(v any) (Document, bool) {
	switch m := v.(type) {
	case Document:
		return m, true
	case map[string]any:
		return Document(m), true
	default:
		return nil, false
	}
}

// asSequence reports whether v is a sequence node.
func asSequence(v any) ([]any, bool) {
	s, ok := v.([]any)
	return s, ok
}

// isNumber reports whether v is a numeric scalar. JSON decoding produces
// float64, YAML decoding produces int or int64, so all three count.
func isNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	default:
		return false
	}
}

// numberValue converts a numeric scalar to float64 for comparisons.
// It returns 0 for non-numeric values; callers check isNumber first.
func numberValue(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	case float64:
		return n
	default:
		return 0
	}
}
