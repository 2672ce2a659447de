// Package ir provides the record types shared by the ledger, its journal and
// its read model.
//
// This package contains type definitions and canonical encoding only. All
// other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - NO float types anywhere - amounts and heights are unsigned integers
//   - Block heights come from the caller, never from wall-clock time
//   - Journal hashes use RFC 8785 canonical JSON with domain separation
//   - All JSON tags use snake_case
package ir
