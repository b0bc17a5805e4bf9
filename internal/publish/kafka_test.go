package publish

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-risk-monitor/internal/domain"
)

type fakeWriter struct {
	msgs   []kafka.Message
	calls  int
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func testRecords() []*domain.ScoreRecord {
	return []*domain.ScoreRecord{
		{TokenID: "A", Symbol: "AAA", Scheme: "fixed", Base: 0.8, Adjusted: 0.8, Tier: domain.RiskVeryHigh, ScoredAt: 1_700_000_000_000},
		{TokenID: "B", Scheme: "fixed", Tier: domain.RiskLow, ScoredAt: 1_700_000_000_000},
	}
}

func TestKafkaPublisher_PublishKeyedByToken(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, Topic: "token-scores"}

	require.NoError(t, p.Publish(context.Background(), testRecords()))

	assert.Equal(t, 1, w.calls, "records go out in one batch")
	require.Len(t, w.msgs, 2)
	assert.Equal(t, "A", string(w.msgs[0].Key))
	assert.Equal(t, "B", string(w.msgs[1].Key))

	var msg ScoreMessage
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &msg))
	assert.Equal(t, "A", msg.TokenID)
	assert.Equal(t, "AAA", msg.Symbol)
	assert.Equal(t, "VeryHigh", msg.Tier)
	assert.Equal(t, "Very High Risk", msg.TierLabel)
	assert.InDelta(t, 0.8, msg.Adjusted, 1e-12)
	assert.Equal(t, int64(1_700_000_000_000), msg.ScoredAt)
}

func TestKafkaPublisher_EmptyBatchSkipsWrite(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w}

	require.NoError(t, p.Publish(context.Background(), nil))
	assert.Zero(t, w.calls)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := &KafkaPublisher{writer: w}

	err := p.Publish(context.Background(), testRecords())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestKafkaPublisher_Close(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w}
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestNewKafkaPublisher(t *testing.T) {
	p := NewKafkaPublisher([]string{"localhost:9092"}, "token-scores")
	assert.Equal(t, "token-scores", p.Topic)

	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
	assert.IsType(t, &kafka.Hash{}, w.Balancer)
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), testRecords()))
	assert.NoError(t, p.Close())
}
