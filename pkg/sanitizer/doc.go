// Package sanitizer normalizes user-supplied parking data before validation
// and storage.
//
// All functions are idempotent. Invalid input degrades to an empty string,
// which the validators then reject.
//
// Normalization includes:
//   - Slot numbers: uppercase, letters, digits and single hyphens only
//   - Plates: uppercase, letters and digits only
//   - Categories (vehicle type, size): lowercase with collapsed whitespace
//   - Free text (location, rejection reason): collapsed whitespace
package sanitizer
