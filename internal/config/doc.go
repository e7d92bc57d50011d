// Package config provides the configuration for irscrape.
//
// A Config starts from NewConfig defaults, is overlaid with the optional
// YAML file (see LoadConfigFile and File.Apply) and then with CLI flags,
// and is finally checked with Validate. Components receive the validated
// value at construction time; nothing reads configuration from globals.
package config
