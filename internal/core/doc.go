// Package core provides the import and export operations of the royalty
// catalog, independent of any transport. It is used by the HTTP server and by
// catalogctl without modification.
//
// # Architecture
//
// The package sits between the outer surfaces and the reconcile pipeline:
//
//   - Layouts: one [Layout] per importable kind, naming the sheet columns and
//     the columns that identify a header row.
//   - Codec: CSV decoding into named rows (with the trailing sentinel row the
//     batch runner expects) and CSV encoding of flattened rows.
//   - Service: the entry point for [Service.Import], [Service.Export],
//     [Service.ExportTerms] and [Service.Get].
//   - Limiter: bounds concurrent imports, see [ImportLimiter].
//
// # Import
//
// An import is one spreadsheet of a single kind, plus for Contracts up to five
// term sheets. The flow is:
//
//  1. Acquire an [ImportLimiter] slot
//  2. Sanitize UTF-8 and parse the CSV
//  3. Find the header row and map every data row to named fields
//  4. Append the sentinel row and hand the rows to the batch runner
//  5. Report succeeded ids and failed rows with their file line numbers
//
// # Entitlement
//
// Every operation takes the acting [entitlement.Principal]. Imports need write
// access to the tenant's Client; exports and reads silently drop entities the
// principal may not read, and [Service.Get] reports [entitlement.ErrForbidden].
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - VAL001-VAL007: Validation errors (business keys, cell formats, headers)
//   - AUTH001-AUTH002: Authorization errors
//   - DB001-DB007: Storage errors
//   - FILE001-FILE005: File errors (size, encoding, format)
//   - IMP001-IMP003: Import errors (busy, cancelled, timeout)
package core
