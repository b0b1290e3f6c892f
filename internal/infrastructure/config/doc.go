// Package config loads and validates tool configuration.
//
// Configuration comes from three layers, later layers overriding earlier
// ones: hardcoded defaults, an optional YAML file, and INVENTORY_* environment
// variables. The config file is optional so the CLI works out of the box
// with flags alone.
package config
