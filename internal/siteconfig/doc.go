// Package siteconfig defines the configuration schema of the documentation
// site: metadata, head tags, navigation, sidebar and theme options. It builds
// validated, normalised SiteConfig values from loosely typed declarations,
// canonicalises link paths, and reconciles successive snapshots of the same
// declaration.
package siteconfig
