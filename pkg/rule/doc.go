// Package rule defines the security-rule document model together with the
// schema validator and the normalizer that prepares documents for deployment.
//
// A rule document is a tree of mappings, sequences, and scalars decoded from
// JSON or YAML. The package deliberately keeps documents as a generic tree
// rather than typed structs: the remote service evolves its schema, and
// fields this tool does not know about must survive validation and
// normalization untouched.
//
// # Basic Usage
//
//	doc, err := rule.Load("rules/failed-logins.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	report := rule.Validate(doc)
//	if !report.Valid() {
//	    for _, f := range report.Errors {
//	        fmt.Println(f)
//	    }
//	}
//
//	cleaned := rule.Normalize(doc)
//
// Validate collects every finding instead of stopping at the first one, so a
// caller can render a complete report. Normalize never mutates its input; it
// returns a deep copy with all server-assigned fields removed.
package rule
