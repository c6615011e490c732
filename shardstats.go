// Package shardstats provides shared types and utilities for per-shard search metrics.
package shardstats

import (
	"errors"
	"fmt"
	"io"
	"strconv"
)

// AllGroups is the group filter which selects every group a shard has seen.
// It only carries that meaning when it is the sole filter value.
const AllGroups = "_all"

// A ShardID identifies one shard of an index.
//
// It is an opaque label: the metrics registry never inspects it,
// it only namespaces snapshots and exported metrics.
type ShardID struct {
	Index string `json:"index"`
	Shard int    `json:"shard"`
}

func (id ShardID) String() string {
	return fmt.Sprintf("[%s][%d]", id.Index, id.Shard)
}

// ParseShardID builds a ShardID from its URL / label representation.
func ParseShardID(index, shard string) (ShardID, error) {
	if index == "" {
		return ShardID{}, fmt.Errorf("empty index name: %w", ErrInvalidShard)
	}

	n, err := strconv.Atoi(shard)
	if err != nil || n < 0 {
		return ShardID{}, fmt.Errorf("shard number %q: %w", shard, ErrInvalidShard)
	}

	return ShardID{Index: index, Shard: n}, nil
}

const maxResponseBodySize = 10 * 1024 * 1024 // 10MB

// limitedReadCloser wraps an io.LimitedReader with the original closer.
type limitedReadCloser struct {
	io.Reader
	io.Closer
}

// LimitReadCloser wraps rc so that at most maxResponseBodySize bytes are read.
// The underlying body is still closed normally.
func LimitReadCloser(rc io.ReadCloser) io.ReadCloser {
	return &limitedReadCloser{
		Reader: io.LimitReader(rc, maxResponseBodySize),
		Closer: rc,
	}
}

var (
	// ErrShardNotFound is returned when no metrics registry
	// is open for the requested shard.
	ErrShardNotFound = errors.New("shard not found")

	// ErrInvalidShard indicates a malformed shard identity.
	ErrInvalidShard = errors.New("invalid shard")

	// ErrInvalidEvent indicates a phase event which cannot be
	// applied, e.g. an unknown phase or event type.
	ErrInvalidEvent = errors.New("invalid phase event")

	// ErrUnavailable may occur when a remote shardstats daemon
	// or webhook is offline or answers with a server error.
	ErrUnavailable = errors.New("endpoint unavailable")

	// ErrFatal indicates a severe problem related to development
	// or configuration, e.g. invalid credentials.
	ErrFatal = errors.New("fatal error")
)
