// SPDX-License-Identifier: Apache-2.0

// Package storage selects the key-value backend for local state.
package storage

import (
	"fmt"

	"github.com/philippgille/gokv"
	"github.com/philippgille/gokv/gomap"
	"github.com/philippgille/gokv/redis"
)

// Store wraps one configured gokv backend.
type Store struct {
	client gokv.Store
}

// NewStore opens the backend named by dbtype; "gomap" keeps state
// in-process, "redis" persists it at the given address.
func NewStore(dbtype, address string) (*Store, error) {
	switch dbtype {
	case "gomap":
		return &Store{client: gomap.NewStore(gomap.DefaultOptions)}, nil
	case "redis":
		options := redis.DefaultOptions
		options.Address = address
		client, err := redis.NewClient(options)
		if err != nil {
			return nil, err
		}
		return &Store{client: client}, nil
	default:
		return nil, fmt.Errorf("unknown database backend %q", dbtype)
	}
}

func (s *Store) GetClient() gokv.Store {
	return s.client
}
