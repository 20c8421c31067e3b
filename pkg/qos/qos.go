// Package qos defines the QoS snapshot value type exchanged during
// discovery and the RxO (requested-vs-offered) compatibility matcher
// applied when pairing local and remote endpoints.
package qos

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// ReliabilityKind selects delivery guarantees for a writer or reader.
type ReliabilityKind int

const (
	ReliabilityBestEffort ReliabilityKind = iota
	ReliabilityReliable
)

// DurabilityKind selects whether late-joining readers receive history.
type DurabilityKind int

const (
	DurabilityVolatile DurabilityKind = iota
	DurabilityTransientLocal
	DurabilityPersistent
)

// HistoryKind selects how many samples per instance are retained.
type HistoryKind int

const (
	HistoryKeepLast HistoryKind = iota
	HistoryKeepAll
)

// OwnershipKind selects whether multiple writers may update one instance.
type OwnershipKind int

const (
	OwnershipShared OwnershipKind = iota
	OwnershipExclusive
)

// LivelinessKind selects who is responsible for asserting liveliness.
type LivelinessKind int

const (
	LivelinessAutomatic LivelinessKind = iota
	LivelinessManualByParticipant
	LivelinessManualByTopic
)

// ResourceLimits caps per-endpoint allocation.
type ResourceLimits struct {
	MaxSamples           int `validate:"min=-1"`
	MaxInstances         int `validate:"min=-1"`
	MaxSamplesPerInstance int `validate:"min=-1"`
}

// Unlimited is the sentinel value for an unbounded ResourceLimits field.
const Unlimited = -1

// Snapshot is the value type carried by an endpoint record and exchanged,
// policy by policy, over SEDP. No hash of a snapshot is computed; Match
// compares the policies directly.
type Snapshot struct {
	Reliability     ReliabilityKind
	MaxBlockingTime time.Duration

	Durability DurabilityKind

	History    HistoryKind
	Depth      int `validate:"min=1"`

	Deadline      time.Duration
	Lifespan      time.Duration
	LatencyBudget time.Duration

	Ownership         OwnershipKind
	OwnershipStrength int32

	Liveliness      LivelinessKind
	LivelinessLease time.Duration

	Partition []string

	ResourceLimits ResourceLimits

	DataTag   map[string][]byte
	GroupTag  []byte
	TopicTag  []byte
	UserTag   []byte
}

// Default returns the RTPS default QoS: BestEffort, Volatile,
// KeepLast(1), Shared ownership, Automatic liveliness, no partitions.
func Default() Snapshot {
	return Snapshot{
		Reliability: ReliabilityBestEffort,
		Durability:  DurabilityVolatile,
		History:     HistoryKeepLast,
		Depth:       1,
		Ownership:   OwnershipShared,
		Liveliness:  LivelinessAutomatic,
		ResourceLimits: ResourceLimits{
			MaxSamples:            Unlimited,
			MaxInstances:          Unlimited,
			MaxSamplesPerInstance: Unlimited,
		},
	}
}

var validate = validator.New()

// Validate checks structural constraints (KeepLast depth ≥ 1, resource
// limits ≥ -1) independent of RxO pairing rules. A KeepAll snapshot's depth
// is not checked.
func (s Snapshot) Validate() error {
	if s.History == HistoryKeepAll && s.Depth < 1 {
		s.Depth = 1
	}
	return validate.Struct(struct {
		Depth          int            `validate:"min=1"`
		ResourceLimits ResourceLimits `validate:"required"`
	}{Depth: s.Depth, ResourceLimits: s.ResourceLimits})
}
