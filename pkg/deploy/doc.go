// Package deploy reconciles local security-rule documents against the remote
// alerting service.
//
// For each document the engine normalizes it, searches the remote account for
// an enabled rule with the same title, and then either updates the matched
// rule in place or creates a new one. Because a document's rule family is not
// known a priori, creation walks an ordered list of candidate endpoints and
// stops at the first one that accepts the document.
//
// The batch deployer applies the engine to a whole directory of documents:
// one document's failure never aborts the rest, and the aggregated Summary is
// the only state the package produces.
package deploy
