// Package taifex extracts typed daily records from the Taiwan Futures
// Exchange's institutional positions and put/call ratio pages.
//
// The package performs no I/O. Callers hand it an already decoded page and
// receive records, or a typed error when the page as a whole is unusable.
// Rows that do not belong to a tracked product or category are skipped, not
// reported, since the exchange tables carry many such rows.
package taifex
