package discovery

import (
	"github.com/hdds-team/hdds/pkg/qos"
	"github.com/hdds-team/hdds/pkg/rtps/guid"
)

// MatchEvent reports that a local and remote endpoint on the same topic
// have been found compatible (or, on an RxO failure, incompatible), per
// §4.2's "each time a local or remote endpoint appears" rule.
type MatchEvent struct {
	LocalGUID  guid.GUID
	RemoteGUID guid.GUID
	// EffectiveQoS is the remote (offered, if local is a reader; requested,
	// if local is a writer) snapshot, recorded for the writer/reader
	// engine to consult.
	EffectiveQoS qos.Snapshot
	Compatible   bool
	FailedPolicy qos.PolicyID
}

// MatchLocalEndpoint pairs a newly-announced or newly-discovered local
// endpoint against every opposite-role remote endpoint already known on
// the same topic/type, returning one MatchEvent per candidate pair.
func MatchLocalEndpoint(reg *Registry, local *LocalEndpoint) []MatchEvent {
	remotes := reg.EndpointsByTopic(local.TopicName, local.TypeName, !local.IsWriter)
	out := make([]MatchEvent, 0, len(remotes))
	for _, remote := range remotes {
		out = append(out, matchPair(local, remote))
	}
	return out
}

// MatchRemoteEndpoint pairs a newly-discovered remote endpoint against
// every opposite-role local endpoint on the same topic/type.
func MatchRemoteEndpoint(reg *Registry, remote *RemoteEndpoint) []MatchEvent {
	locals := reg.LocalEndpointsByTopic(remote.TopicName, remote.TypeName, !remote.IsWriter)
	out := make([]MatchEvent, 0, len(locals))
	for _, local := range locals {
		out = append(out, matchPair(local, remote))
	}
	return out
}

func matchPair(local *LocalEndpoint, remote *RemoteEndpoint) MatchEvent {
	var result qos.MatchResult
	if local.IsWriter {
		result = qos.Match(local.QoS, remote.QoS)
	} else {
		result = qos.Match(remote.QoS, local.QoS)
	}
	return MatchEvent{
		LocalGUID:    local.GUID,
		RemoteGUID:   remote.GUID,
		EffectiveQoS: remote.QoS,
		Compatible:   result.Compatible,
		FailedPolicy: result.FailedPolicy,
	}
}
