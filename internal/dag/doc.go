// Package dag is a small directed graph used to check the connections
// between stages of a pipeline: every edge must point at a known node, the
// graph must stay acyclic, and stages can be visited in dependency order.
//
// Node iteration follows insertion order so that error messages and
// topological orders are reproducible.
package dag
