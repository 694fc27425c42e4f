package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/aixasz/AixaszSampleProject/pkg/slogx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	subject string
	data    []byte
}

type fakeConn struct {
	msgs    []published
	err     error
	drained bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{subject: subject, data: data})
	return nil
}

func (f *fakeConn) Drain() error {
	f.drained = true
	return nil
}

func TestNATSPublishesJSONOnTypedSubject(t *testing.T) {
	fc := &fakeConn{}
	p := newNATS(fc, "auth.events")

	ctx := slogx.WithRequestID(context.Background(), "req-42")
	p.Publish(ctx, Event{
		Type:      TokenIssued,
		GrantType: "client_credentials",
		ClientID:  "c1",
		Subject:   "c1",
		Scopes:    []string{"api"},
	})

	require.Len(t, fc.msgs, 1)
	assert.Equal(t, "auth.events.token.issued", fc.msgs[0].subject)

	var got Event
	require.NoError(t, json.Unmarshal(fc.msgs[0].data, &got))
	assert.Equal(t, TokenIssued, got.Type)
	assert.Equal(t, "req-42", got.RequestID)
	assert.Equal(t, []string{"api"}, got.Scopes)
	assert.False(t, got.Time.IsZero())

	require.NoError(t, p.Close())
	assert.True(t, fc.drained)
}

func TestNATSPublishFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	ctx := slogx.WithContext(context.Background(), logger)

	p := newNATS(&fakeConn{err: errors.New("nats: connection closed")}, "auth.events")
	p.Publish(ctx, Event{Type: LoginFailed, Username: "alice"})

	assert.Contains(t, buf.String(), "audit: publish failed")
}

func TestLogPublisherLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	ctx := slogx.WithContext(context.Background(), logger)

	Log{}.Publish(ctx, Event{Type: AccountLocked, Username: "alice"})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, AccountLocked, line["event"])
	assert.Equal(t, "alice", line["username"])
}

func TestNewNATSUnreachable(t *testing.T) {
	_, err := NewNATS(Config{URL: "nats://127.0.0.1:1"}, slog.Default())
	require.Error(t, err)
}
