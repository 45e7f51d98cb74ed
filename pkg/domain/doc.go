// Package domain holds the core diun2homer types: the Diun webhook payload,
// the stored notification and the Homer message it is rendered into.
package domain
