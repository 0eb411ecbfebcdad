// Package config provides configuration structures and utilities for sitewalker.
//
// Two kinds of configuration live here:
//   - Config: process-wide settings (database location, download root,
//     HTTP politeness) populated from CLI flags
//   - SiteConfig: a declarative site definition loaded from YAML, holding
//     the root URL and the ordered walker rules
//
// Site files are validated in full before any crawl activity starts, so the
// walker package can assume every pattern and selector compiles.
package config
