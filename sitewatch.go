// Package sitewatch watches web pages for meaningful content changes.
// It fetches each watched site on a fixed interval, extracts and normalizes
// the visible text, compares it with the last stored snapshot, and emits
// change events for downstream notification.
//
// This package contains domain types, interfaces, and the pure text
// processing used to decide what counts as a change. Implementations live in
// subdirectories named after their primary dependency (e.g., sqlite/,
// goquery/, telegram/).
package sitewatch
