// Package diag defines the error model shared by every stage of a run.
//
// An *Error carries a numeric Code, a Severity, a short message and an
// optional cause. Codes are grouped by category and each category maps to a
// process exit status (see Code.ExitCode):
//
//   - USE1xxx: command line and configuration problems (exit 1)
//   - REF2xxx: module references that cannot be resolved or read (exit 2)
//   - DUP3xxx: duplicate export names or ordinals (exit 3)
//   - DSC4xxx: types and marshalling descriptors that cannot be rendered (exit 4)
//   - IOE5xxx: file system failures (exit 5)
//   - TLC6xxx: assembler lookup and start failures (exit 6)
//   - WRN7xxx: findings that never abort a run
//
// Error() yields only the top-level message; Detail renders the cause chain.
// Warnings are collected in a Bag, which drops repeats.
package diag
