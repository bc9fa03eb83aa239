package rule

// Normalize returns a copy of the document with every server-assigned field
// removed: id, createdAt, createdBy, updatedAt, updatedBy at the root, id in
// each subComponent, and output.recipients.notificationEndpointIds. Endpoint
// bindings are account-specific and must never be carried between
// environments verbatim.
//
// The input document is never mutated, and Normalize is idempotent:
// Normalize(Normalize(doc)) equals Normalize(doc).
func Normalize(doc Document) Document {
	cleaned := doc.Clone()

	for _, field := range serverOwnedFields {
		delete(cleaned, field)
	}

	if components, ok := asSequence(cleaned["subComponents"]); ok {
		for _, cv := range components {
			if component, ok := asMapping(cv); ok {
				delete(component, "id")
			}
		}
	}

	if output, ok := asMapping(cleaned["output"]); ok {
		if recipients, ok := asMapping(output["recipients"]); ok {
			delete(recipients, "notificationEndpointIds")
		}
	}

	return cleaned
}
