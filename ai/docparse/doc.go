// Package docparse implements ai.Parser against the external
// document-parsing service, which converts raw document bytes
// (PDF, DOCX, scanned filings) into plain text.
package docparse
