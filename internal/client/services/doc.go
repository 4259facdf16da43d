// Package services contains the application services of the notes client:
// loading and deleting notes, the two-phase save (note text first, then its
// attachments), attachment deletion and download, and the pending file
// selection that feeds a save.
package services
