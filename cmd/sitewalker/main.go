// Package main provides the entry point for the sitewalker CLI.
//
// sitewalker walks one web site step by step. Each step takes the next page
// from a persistent queue, fetches it, and hands it to the rules whose URL
// pattern matches: extract rules follow links, image rules download files.
//
// Usage:
//
//	sitewalker init
//	sitewalker run site.yaml -r -t 10
//	sitewalker show <key>
//
// See --help for all available options.
package main

// main is the entry point for sitewalker.
func main() {
	Execute()
}
