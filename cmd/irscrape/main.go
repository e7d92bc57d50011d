// Package main provides the entry point for the irscrape CLI.
//
// irscrape walks the NIST Chemistry WebBook by molecular mass and saves
// the infrared spectrum (JCAMP-DX) and structure (MOL) file of every
// compound it finds. Progress is checkpointed so an interrupted crawl
// resumes where it stopped.
//
// Usage:
//
//	irscrape crawl [start-mass]
//	irscrape report
//
// See --help for all available options.
package main

// main is the entry point for irscrape.
func main() {
	Execute()
}
