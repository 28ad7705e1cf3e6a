// Package config loads runtime configuration of the site configuration
// service from multiple sources (YAML files, environment variables, CLI
// flags) with precedence: CLI flags > YAML config > Environment variables >
// Defaults. It exposes strongly typed settings to the rest of the
// application. The documentation site declaration itself is handled by the
// siteconfig package.
package config
