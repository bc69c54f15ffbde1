// Package rhash computes the stable 64-bit identifiers ("Hash", §3.2) used
// throughout the execution core as map keys for functions, types, and
// protocols. A Hash is derived purely from an item's path (or a protocol's
// name) and a fixed seed, so it is reproducible across processes and builds
// that share the same seed (§8.1.5).
package rhash

import "fmt"

// Hash is a 64-bit stable identifier for a path, type, or protocol.
type Hash uint64

func (h Hash) String() string {
	return fmt.Sprintf("#%016x", uint64(h))
}

// IsZero reports whether h is the sentinel empty hash.
func (h Hash) IsZero() bool { return h == 0 }

// seed is fixed so that Hash computation is deterministic across processes
// (§8.1.5). It is not a cryptographic secret; it exists only to decorrelate
// the hash from the raw FNV offset basis.
const seed uint64 = 0xd6e8feb86659fd93

// fnv1a64 computes a seeded FNV-1a hash over b.
func fnv1a64(seedVal uint64, b []byte) uint64 {
	h := seedVal
	for _, c := range b {
		h ^= uint64(c)
		h *= 0x100000001b3
	}
	return h
}

// TypeHash computes the hash for an item path such as "foo::bar::Baz". Equal
// paths always hash identically (§8.1.5); the implementation does not
// attempt collision detection, per §4.2.
func TypeHash(path string) Hash {
	return Hash(fnv1a64(seed, []byte(path)))
}

// FunctionHash computes the hash for a free-function item path. Function and
// type hashes share the same path-hashing scheme, since both live in the
// same namespace of the context's Hash-keyed tables (§3.2).
func FunctionHash(path string) Hash {
	return TypeHash(path)
}

// VariantHash derives a tuple-variant or struct-variant hash by combining
// the owning enum's hash with the variant's declaration index (§4.2).
func VariantHash(enum Hash, variantIndex uint32) Hash {
	mixed := uint64(enum)
	mixed ^= uint64(variantIndex) + 0x9e3779b97f4a7c15 + (mixed << 6) + (mixed >> 2)
	return Hash(fnv1a64(seed, encodeU64(mixed)))
}

// InstanceHash derives the hash used to look up an instance function:
// combining the receiver type's hash with the method name (§4.6,
// CallInstance).
func InstanceHash(receiver Hash, name string) Hash {
	buf := make([]byte, 0, 8+len(name))
	buf = append(buf, encodeU64(uint64(receiver))...)
	buf = append(buf, name...)
	return Hash(fnv1a64(seed, buf))
}

// ProtocolHash derives the hash for a well-known protocol name (ADD,
// INDEX_GET, INTO_ITER, ...). Protocols live in the same Hash space as types
// and functions but are namespaced under a fixed prefix so they cannot
// collide with ordinary item paths by accident.
func ProtocolHash(name string) Hash {
	return TypeHash("protocol::" + name)
}

func encodeU64(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}
