package api

import (
	"context"

	"github.com/ssargent/blinkdb/pkg/store"
)

// IKVStore is the subset of *store.KVStore the API server depends on. It
// exists so Server can be exercised against a test double, the same
// seam the teacher's handlers.go already assumed via this interface without
// ever defining it.
type IKVStore interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	Close() error
	Stats() *store.StoreStats
	Explain(ctx context.Context, opts store.ExplainOptions) (*store.ExplainResult, error)
	ListKeys(prefix []byte) ([]string, error)
	Scan(lower []byte, lowerInclusive bool, upper []byte, upperInclusive bool) (<-chan store.KeyValuePair, error)
	PutRelationship(fromKey, toKey, relation string) error
	DeleteRelationship(fromKey, toKey, relation string) error
	GetRelationships(query store.RelationshipQuery) ([]store.RelationshipResult, error)
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// RelationshipRequest represents a relationship creation/deletion request
type RelationshipRequest struct {
	FromKey  string `json:"from_key"`
	ToKey    string `json:"to_key"`
	Relation string `json:"relation"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port    int
	APIKey  string
	DataDir string
}
