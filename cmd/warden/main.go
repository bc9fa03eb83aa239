// Warden validates, cleans, and deploys SIEM security rules.
//
// Rule documents live as JSON or YAML files in a directory; warden checks
// them against the rule schema, strips server-owned fields, and reconciles
// them against a remote account by title: existing rules are updated in
// place, new rules are created.
//
// Usage:
//
//	# Validate a rules directory
//	warden validate --dir rules/
//
//	# Strip server-owned fields from exported rules
//	warden clean --dir exported/ --output rules/
//
//	# Deploy a rules directory
//	warden deploy --dir rules/
//
//	# Export the remote account to local files
//	warden export --all --output exported/
//
//	# Continuously deploy on file changes
//	warden watch --dir rules/
//
// The API token is read from WARDEN_API_TOKEN.
package main

func main() {
	Execute()
}
