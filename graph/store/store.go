// Package store provides persistence implementations for graph.CheckpointStore.
package store

import "github.com/dshills/stategraph-go/graph"

// ErrNotFound is returned when a requested thread or checkpoint does not
// exist. It is an alias of graph.ErrCheckpointNotFound so the executor can
// recognize a fresh thread with errors.Is without importing this package.
var ErrNotFound = graph.ErrCheckpointNotFound
