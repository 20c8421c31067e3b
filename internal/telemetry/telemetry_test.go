package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "hdds", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Enabled = false

	shutdown, err := Init(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	// Should be able to call shutdown without error
	err = shutdown(ctx)
	assert.NoError(t, err)

	// Should not be enabled
	assert.False(t, IsEnabled())
}

func TestTracerReturnsNoOp(t *testing.T) {
	// Reset state
	tracer = nil
	enabled = false

	// Without initialization, should return no-op tracer
	tr := Tracer()
	require.NotNil(t, tr)
}

func TestStartSpan(t *testing.T) {
	ctx := context.Background()

	// Even without initialization, StartSpan should work (no-op)
	newCtx, span := StartSpan(ctx, "test.operation")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)

	// Should be able to end the span
	span.End()
}

func TestSpanFromContext(t *testing.T) {
	ctx := context.Background()

	// Should return a span even without active span
	span := SpanFromContext(ctx)
	require.NotNil(t, span)
}

func TestAddEvent(t *testing.T) {
	ctx := context.Background()

	// Should not panic with no active span
	require.NotPanics(t, func() {
		AddEvent(ctx, "test.event")
	})
}

func TestRecordError(t *testing.T) {
	ctx := context.Background()

	// Should not panic with nil error
	require.NotPanics(t, func() {
		RecordError(ctx, nil)
	})

	// Should not panic with error
	require.NotPanics(t, func() {
		RecordError(ctx, errors.New("test error"))
	})
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Ok, "success")
	})

	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Error, "failed")
	})
}

func TestSetAttributes(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	require.NotPanics(t, func() {
		SetAttributes(ctx, Topic("HelloWorldTopic"))
	})
}

func TestTraceID(t *testing.T) {
	ctx := context.Background()

	// Without active span, should return empty string
	traceID := TraceID(ctx)
	assert.Equal(t, "", traceID)
}

func TestSpanID(t *testing.T) {
	ctx := context.Background()

	// Without active span, should return empty string
	spanID := SpanID(ctx)
	assert.Equal(t, "", spanID)
}

func TestAttributeHelpers(t *testing.T) {
	t.Run("DomainID", func(t *testing.T) {
		attr := DomainID(42)
		assert.Equal(t, AttrDomainID, string(attr.Key))
		assert.Equal(t, int64(42), attr.Value.AsInt64())
	})

	t.Run("ParticipantGUID", func(t *testing.T) {
		attr := ParticipantGUID([]byte{0x01, 0x02, 0x03, 0x04})
		assert.Equal(t, AttrParticipantGUID, string(attr.Key))
		assert.Equal(t, "01020304", attr.Value.AsString())
	})

	t.Run("EntityGUID", func(t *testing.T) {
		attr := EntityGUID([]byte{0xde, 0xad, 0xbe, 0xef})
		assert.Equal(t, AttrEntityGUID, string(attr.Key))
		assert.Equal(t, "deadbeef", attr.Value.AsString())
	})

	t.Run("Topic", func(t *testing.T) {
		attr := Topic("HelloWorldTopic")
		assert.Equal(t, AttrTopic, string(attr.Key))
		assert.Equal(t, "HelloWorldTopic", attr.Value.AsString())
	})

	t.Run("TypeName", func(t *testing.T) {
		attr := TypeName("HelloWorld::Msg")
		assert.Equal(t, AttrTypeName, string(attr.Key))
		assert.Equal(t, "HelloWorld::Msg", attr.Value.AsString())
	})

	t.Run("Role", func(t *testing.T) {
		attr := Role("writer")
		assert.Equal(t, AttrRole, string(attr.Key))
		assert.Equal(t, "writer", attr.Value.AsString())
	})

	t.Run("Dialect", func(t *testing.T) {
		attr := Dialect("fastdds")
		assert.Equal(t, AttrDialect, string(attr.Key))
		assert.Equal(t, "fastdds", attr.Value.AsString())
	})

	t.Run("Submessage", func(t *testing.T) {
		attr := Submessage("HEARTBEAT")
		assert.Equal(t, AttrSubmessage, string(attr.Key))
		assert.Equal(t, "HEARTBEAT", attr.Value.AsString())
	})

	t.Run("SeqNum", func(t *testing.T) {
		attr := SeqNum(1024)
		assert.Equal(t, AttrSeqNum, string(attr.Key))
		assert.Equal(t, int64(1024), attr.Value.AsInt64())
	})

	t.Run("FirstSN", func(t *testing.T) {
		attr := FirstSN(1)
		assert.Equal(t, AttrFirstSN, string(attr.Key))
		assert.Equal(t, int64(1), attr.Value.AsInt64())
	})

	t.Run("LastSN", func(t *testing.T) {
		attr := LastSN(100)
		assert.Equal(t, AttrLastSN, string(attr.Key))
		assert.Equal(t, int64(100), attr.Value.AsInt64())
	})

	t.Run("FragNum", func(t *testing.T) {
		attr := FragNum(3)
		assert.Equal(t, AttrFragNum, string(attr.Key))
		assert.Equal(t, int64(3), attr.Value.AsInt64())
	})

	t.Run("FragTotal", func(t *testing.T) {
		attr := FragTotal(10)
		assert.Equal(t, AttrFragTotal, string(attr.Key))
		assert.Equal(t, int64(10), attr.Value.AsInt64())
	})

	t.Run("TransportKind", func(t *testing.T) {
		attr := TransportKind("udp")
		assert.Equal(t, AttrTransportKind, string(attr.Key))
		assert.Equal(t, "udp", attr.Value.AsString())
	})

	t.Run("LocatorAddr", func(t *testing.T) {
		attr := LocatorAddr("239.255.0.1")
		assert.Equal(t, AttrLocatorAddr, string(attr.Key))
		assert.Equal(t, "239.255.0.1", attr.Value.AsString())
	})

	t.Run("LocatorPort", func(t *testing.T) {
		attr := LocatorPort(7400)
		assert.Equal(t, AttrLocatorPort, string(attr.Key))
		assert.Equal(t, int64(7400), attr.Value.AsInt64())
	})

	t.Run("Bytes", func(t *testing.T) {
		attr := Bytes(4096)
		assert.Equal(t, AttrBytes, string(attr.Key))
		assert.Equal(t, int64(4096), attr.Value.AsInt64())
	})

	t.Run("Interface", func(t *testing.T) {
		attr := Interface("eth0")
		assert.Equal(t, AttrInterface, string(attr.Key))
		assert.Equal(t, "eth0", attr.Value.AsString())
	})

	t.Run("Policy", func(t *testing.T) {
		attr := Policy("RELIABILITY")
		assert.Equal(t, AttrPolicy, string(attr.Key))
		assert.Equal(t, "RELIABILITY", attr.Value.AsString())
	})

	t.Run("RateBps", func(t *testing.T) {
		attr := RateBps(1048576.0)
		assert.Equal(t, AttrRateBps, string(attr.Key))
		assert.Equal(t, 1048576.0, attr.Value.AsFloat64())
	})
}

func TestStartWriterSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartWriterSpan(ctx, "write", []byte{0x01, 0x02, 0x03, 0x04})
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	// With additional attributes
	newCtx2, span2 := StartWriterSpan(ctx, "heartbeat", []byte{0x01}, FirstSN(1), LastSN(10))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}

func TestStartReaderSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartReaderSpan(ctx, "take", []byte{0x01, 0x02, 0x03, 0x04})
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	// With additional attributes
	newCtx2, span2 := StartReaderSpan(ctx, "acknack", []byte{0x01}, SeqNum(5))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}

func TestStartDiscoverySpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartDiscoverySpan(ctx, "spdp.announce")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	// With additional attributes
	newCtx2, span2 := StartDiscoverySpan(ctx, "sedp.match", Topic("HelloWorldTopic"))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}

func TestStartTransportSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartTransportSpan(ctx, "send", TransportKind("udp"), Bytes(1500))
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()
}

func TestStartCongestionSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartCongestionSpan(ctx, "tick", RateBps(65536))
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()
}
