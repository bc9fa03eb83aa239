// Package export pulls rule documents out of a remote account and writes
// them as local JSON files, one per rule, ready to be cleaned and redeployed.
package export
