// Package report renders stored sites for the terminal and for sharing.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Plain text for terminal display
//   - MarkdownWriter: Markdown with tables and a page tree
//   - JSONWriter: Structured JSON for tool integration
package report
