// Package report renders an analysis as a reviewer-facing Markdown or HTML
// document.
package report
