// Package diag defines the diagnostic model shared by the assembler, the unit
// loader, the validator and the reification pass.
//
// # Data model
//
// Diagnostic is the central record. It contains:
//
//   - Severity: Info, Warning or Error (severity.go).
//   - Code: compact numeric identifier with a stable string form (codes.go).
//   - Message: human oriented text; keep it short and actionable.
//   - Primary: the Location of the issue, either a source line of an
//     assembly or manifest file or an instruction index inside a method.
//   - Notes: optional secondary locations/messages.
//
// # Emitting diagnostics
//
// Producers use a Reporter to decouple emission from storage. ReportBuilder
// (or the ReportError/ReportWarning/ReportInfo helpers) chains WithNote before
// calling Emit. BagReporter aggregates into a Bag, which supports limits,
// sorting, deduplication and merging.
//
// Package diag does no IO; rendering for tests and the CLI short form lives in
// format.go and stays deterministic so results can be cached and compared.
package diag
