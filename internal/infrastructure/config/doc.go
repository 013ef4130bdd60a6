// Package config loads and validates Hearthside Core configuration.
//
// Configuration comes from three layers, later layers overriding earlier:
// hardcoded defaults, a YAML file, and HEARTHSIDE_* environment variables.
// Environment overrides exist for the values most often set per-deployment
// (database path, broker host, credentials, API bind address).
package config
