// Package csvio moves records in and out of comma separated text.
//
// Parse and Importer turn a CSV document with a header row into new records,
// inserting them one at a time through the record service. WriteCSV and
// ExportCSV produce the id,name,description document. Watcher imports every
// CSV file dropped into an inbox directory.
package csvio
