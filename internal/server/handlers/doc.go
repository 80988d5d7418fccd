// Package handlers implements the agent's admin API: health, metric and
// publisher listings, and record submission.
package handlers
