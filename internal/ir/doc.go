// Package ir provides the value layer shared by the query packages:
// normalisation of raw driver values, canonical JSON encoding and
// domain-separated content hashes.
//
// This package imports nothing internal. queryir uses it to fingerprint
// query specifications; queryset and harness use it to normalise rows and
// to produce deterministic snapshots.
//
// Key design constraints:
//   - Canonical JSON sorts object keys by UTF-16 code units (RFC 8785)
//   - Strings are NFC normalised at the serialization boundary
//   - NaN and infinities are rejected; they have no JSON form
package ir
