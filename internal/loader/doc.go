// Package loader reads site configuration declarations from YAML, JSON or
// TOML files into the untyped form accepted by siteconfig.Build, writes
// normalised configurations back out, and watches declaration files for
// changes.
package loader
