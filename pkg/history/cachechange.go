// Package history implements the writer history cache and reader sample
// cache: ordered per-endpoint sample storage with READ/TAKE semantics,
// instance keying, and history-depth eviction.
package history

import (
	"crypto/md5"

	"github.com/cespare/xxhash/v2"
	"github.com/hdds-team/hdds/pkg/rtps/types"
)

// SampleState tracks whether the application has already READ a sample.
type SampleState int

const (
	SampleNotRead SampleState = iota
	SampleRead
)

// ViewState tracks whether an instance is newly observed by this reader.
type ViewState int

const (
	ViewNew ViewState = iota
	ViewNotNew
)

// InstanceState tracks the liveliness of the instance a sample belongs to.
type InstanceState int

const (
	InstanceAlive InstanceState = iota
	InstanceDisposed
	InstanceNoWriters
)

// InstanceHandle is the hash of a sample's @key fields; the zero handle is
// used for keyless types.
type InstanceHandle [16]byte

// ZeroInstanceHandle is used for keyless topics, where every sample
// belongs to the same implicit instance.
var ZeroInstanceHandle InstanceHandle

// KeyHashMode selects the function used to derive InstanceHandle from key
// octets. The spec leaves this an open question: MD5 is what the wire
// spec itself defines and is required for byte-identical cross-vendor
// instance handles; xxhash is a faster, non-interoperable alternative for
// deployments that never need to match instance handles against another
// vendor's stack.
type KeyHashMode int

const (
	// KeyHashMD5 matches the RTPS spec's definition of instance handle
	// derivation and is required when serialized key octets must compare
	// equal to a handle computed by another vendor's implementation.
	KeyHashMD5 KeyHashMode = iota
	// KeyHashXXHash trades cross-vendor handle compatibility for speed;
	// only safe when every reader/writer pair on a topic is this core.
	KeyHashXXHash
)

// ComputeInstanceHandle derives the instance handle for a sample's
// serialized key octets. Keyless types should pass nil and receive
// ZeroInstanceHandle.
func ComputeInstanceHandle(mode KeyHashMode, keyOctets []byte) InstanceHandle {
	if len(keyOctets) == 0 {
		return ZeroInstanceHandle
	}
	switch mode {
	case KeyHashXXHash:
		var h InstanceHandle
		sum := xxhash.Sum64(keyOctets)
		for i := 0; i < 8; i++ {
			h[i] = byte(sum >> (8 * uint(i)))
		}
		return h
	default:
		return InstanceHandle(md5.Sum(keyOctets))
	}
}

// CacheChange is one sample as stored in a writer's history cache or a
// reader's sample cache.
type CacheChange struct {
	SeqNum          types.SequenceNumber
	SourceTimestampNS int64
	InstanceHandle  InstanceHandle
	Payload         []byte

	SampleState   SampleState
	ViewState     ViewState
	InstanceState InstanceState
}
