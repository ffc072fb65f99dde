// Package operations contains the object operations the storage client is
// built from. Each one issues exactly one service request with the bucket,
// full key and per-call options it is given; namespace resolution happens
// in the caller.
package operations
