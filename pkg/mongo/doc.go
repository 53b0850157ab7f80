// Package mongo provides MongoDB connection management: environment-driven
// configuration, connect-time retries for transient failures, pooling
// defaults that need no tuning for this service's traffic, and a health
// check for orchestration probes.
package mongo
