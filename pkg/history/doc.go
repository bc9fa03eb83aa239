// Package history persists deployment outcomes in a local SQLite database.
//
// Every batch deployment is a run; every document outcome within it is a
// record attached to that run. The store implements deploy.Recorder, so a
// deployer wired with it records outcomes transparently. Recording is
// best-effort: a history failure never changes a deployment result.
package history
