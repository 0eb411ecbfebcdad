// Package model defines the core data structures used throughout sitewalker.
//
// This package contains the following main types:
//   - Site: A configured crawl target with its ordered rules and counters
//   - Rule: A walker rule mapping a URL pattern to a processor
//   - Page: A discovered URL within a site, processed or not
//   - QueueEntry: A pending-processing marker for a page
//   - ProcessorStat / WalkerStat: Counters collected while stepping
package model
