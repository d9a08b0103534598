// Package chapters extracts chapter markers from tool diagnostic output.
//
// The thumbnail tool prints chapter boundaries to stderr as human-readable
// text rather than a structured format, so this parser matches recognized
// line prefixes: a "Chapter" line opens a marker and carries its start
// offset, and the next "title" metadata line attaches to the most recently
// opened marker. The wording is an informal contract with the tool and can
// drift across versions; failures here surface through the same typed parse
// boundary as every other tool parser, never as a crash.
package chapters
