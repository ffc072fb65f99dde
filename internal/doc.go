// Package internal contains private implementation details for the storage module.
// These packages are not intended for external use and may change without notice.
//
// The internal packages are organized as follows:
//   - operations: single-request object operations (download, upload, properties, presign)
//   - transfer: cancelable and progress-reporting body readers
//   - validation: input validation logic
//   - pool: buffer reuse for body streaming
//   - testutil: mocks and LocalStack helpers for tests
package internal
