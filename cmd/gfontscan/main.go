// Package main provides the entry point for the gfontscan CLI.
//
// gfontscan reports whether a web page loads fonts from Google Fonts,
// following stylesheet links, @import chains and external scripts, and
// prints a report ending in GOOGLE_FONTS_PRESENT=YES|NO|UNKNOWN.
//
// Usage:
//
//	gfontscan scan <url>
//	gfontscan scan <url> <url>...
//	gfontscan history <url>
//
// See --help for all available options.
package main

// main is the entry point for gfontscan.
func main() {
	Execute()
}
