package kv

import (
	"context"

	"cv-optimizer/internal/shared/util"
)

type namespaced struct {
	inner  Store
	prefix string
}

// Namespace scopes every key of inner under a hash of clientID, so each client
// sees its own set of slots the way browser storage is scoped per origin.
func Namespace(inner Store, clientID string) Store {
	return &namespaced{inner: inner, prefix: util.HashClientKey(clientID) + "/"}
}

func (n *namespaced) Get(ctx context.Context, key string) (string, error) {
	return n.inner.Get(ctx, n.prefix+key)
}

func (n *namespaced) Set(ctx context.Context, key, value string) error {
	return n.inner.Set(ctx, n.prefix+key, value)
}

func (n *namespaced) Remove(ctx context.Context, key string) error {
	return n.inner.Remove(ctx, n.prefix+key)
}
