package qos

import (
	"testing"
	"time"
)

func TestMatchDefaultCompatible(t *testing.T) {
	offered := Default()
	requested := Default()
	result := Match(offered, requested)
	if !result.Compatible {
		t.Fatalf("expected default QoS to match, failed policy: %s", result.FailedPolicy)
	}
}

func TestMatchReliabilityMismatch(t *testing.T) {
	offered := Default()
	offered.Reliability = ReliabilityBestEffort
	requested := Default()
	requested.Reliability = ReliabilityReliable

	result := Match(offered, requested)
	if result.Compatible {
		t.Fatalf("expected mismatch: best-effort writer vs reliable reader")
	}
	if result.FailedPolicy != PolicyReliability {
		t.Fatalf("expected PolicyReliability, got %s", result.FailedPolicy)
	}
}

func TestMatchReliabilityAsymmetric(t *testing.T) {
	offered := Default()
	offered.Reliability = ReliabilityReliable
	requested := Default()
	requested.Reliability = ReliabilityBestEffort

	// Reliable writer to best-effort reader: compatible.
	if !Match(offered, requested).Compatible {
		t.Fatalf("reliable writer should match best-effort reader")
	}

	// Reversed: best-effort writer does not satisfy a reliable reader.
	if Match(requested, offered).Compatible {
		t.Fatalf("best-effort writer must not match reliable reader")
	}
}

func TestMatchHistoryDepth(t *testing.T) {
	offered := Default()
	offered.Depth = 5
	requested := Default()
	requested.Depth = 10

	result := Match(offered, requested)
	if result.Compatible {
		t.Fatalf("writer depth < reader depth should fail to match")
	}
	if result.FailedPolicy != PolicyHistory {
		t.Fatalf("expected PolicyHistory, got %s", result.FailedPolicy)
	}
}

func TestMatchPartitionIntersection(t *testing.T) {
	offered := Default()
	offered.Partition = []string{"A", "B"}
	requested := Default()
	requested.Partition = []string{"B", "C"}

	if !Match(offered, requested).Compatible {
		t.Fatalf("expected partition intersection to match")
	}
}

func TestMatchPartitionNoIntersection(t *testing.T) {
	offered := Default()
	offered.Partition = []string{"A"}
	requested := Default()
	requested.Partition = []string{"B"}

	result := Match(offered, requested)
	if result.Compatible {
		t.Fatalf("expected disjoint partitions to fail to match")
	}
	if result.FailedPolicy != PolicyPartition {
		t.Fatalf("expected PolicyPartition, got %s", result.FailedPolicy)
	}
}

func TestMatchDefaultPartitionVsExplicit(t *testing.T) {
	offered := Default() // default partition (empty)
	requested := Default()
	requested.Partition = []string{"A"}

	if Match(offered, requested).Compatible {
		t.Fatalf("default partition writer should not match explicitly partitioned reader")
	}
}

func TestMatchLivelinessLeaseMismatch(t *testing.T) {
	offered := Default()
	offered.LivelinessLease = 10 * time.Second
	requested := Default()
	requested.LivelinessLease = 5 * time.Second

	result := Match(offered, requested)
	if result.Compatible {
		t.Fatalf("writer lease > reader lease should fail to match even when both sides are Automatic")
	}
	if result.FailedPolicy != PolicyLiveliness {
		t.Fatalf("expected PolicyLiveliness, got %s", result.FailedPolicy)
	}
}

func TestMatchLivelinessLeaseCompatible(t *testing.T) {
	offered := Default()
	offered.LivelinessLease = 5 * time.Second
	requested := Default()
	requested.LivelinessLease = 10 * time.Second

	if !Match(offered, requested).Compatible {
		t.Fatalf("writer lease <= reader lease should match")
	}
}

func TestValidateAcceptsKeepAll(t *testing.T) {
	s := Default()
	s.History = HistoryKeepAll
	if err := s.Validate(); err != nil {
		t.Fatalf("keep-all snapshot should validate: %v", err)
	}
}
