// Package transfer wraps object bodies so that transfers report progress and
// stop as soon as their context is canceled.
package transfer
