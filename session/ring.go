package session

import (
	"github.com/buraksezer/consistent"
	"github.com/spaolacci/murmur3"
)

type hasher struct{}

func (h hasher) Sum64(data []byte) uint64 {
	return murmur3.Sum64(data)
}

type Member string

func (m Member) String() string {
	return string(m)
}

// Ring places session keys on one of a fixed set of storage endpoints.
// Membership is static configuration; the ring is never mutated after
// construction.
type Ring struct {
	hring *consistent.Consistent
}

func NewRing(endpoints []string) *Ring {
	members := make([]consistent.Member, 0, len(endpoints))
	for _, endpoint := range endpoints {
		members = append(members, Member(endpoint))
	}
	cfg := consistent.Config{
		PartitionCount:    271,
		ReplicationFactor: 20,
		Load:              1.25,
		Hasher:            hasher{},
	}
	return &Ring{
		hring: consistent.New(members, cfg),
	}
}

func (r *Ring) Locate(key string) string {
	return r.hring.LocateKey([]byte(key)).String()
}
