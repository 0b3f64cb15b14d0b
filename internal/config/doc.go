// Package config provides configuration structures and utilities for gfontscan.
// It defines the resolution limits, request settings, report preferences and
// the per-site overrides loaded from the .gfontscan YAML file.
package config
