// Package watch keeps a remote account in sync with a local rules directory:
// file changes trigger debounced redeploys, and an optional cron schedule
// forces periodic full resyncs.
package watch
