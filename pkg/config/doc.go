// Package config defines warden's YAML configuration, its defaults, and its
// validation rules.
//
// Configuration is resolved in three layers, later layers winning:
//
//  1. built-in defaults
//  2. the YAML file given with --config
//  3. WARDEN_* environment variables (e.g. WARDEN_API_TOKEN)
//
// The API token is deliberately never written by warden itself; supply it via
// the environment in CI.
package config
