// Package ingest provides the import engine for extraction result files.
//
// Each supported format (CSV/TSV, JSON, YAML) has its own importer that
// implements the Importer interface. The engine picks an importer by file
// extension, validates the rows and writes them to the samples store under
// one (user, report) context.
//
// Long-form files carry one measurement per record with the columns
// sample_id, parameter, unit and value (case-insensitive, unit optional).
// CSV files may also be wide: one sample per row with a SampleID column
// and one column per parameter.
package ingest
