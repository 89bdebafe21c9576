package protocol

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func next(t *testing.T, c Connection) Event {
	t.Helper()
	select {
	case ev := <-c.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event")
		return Event{}
	}
}

func fastSimulated() *Simulated {
	return &Simulated{PairingDelay: time.Millisecond, OpenDelay: time.Millisecond}
}

func TestSimulatedEphemeralIssuesPairingCode(t *testing.T) {
	c, err := fastSimulated().Open(context.Background(), OpenOptions{SessionKey: "pairing-15551234567", PhoneNumber: "15551234567", Ephemeral: true})
	require.NoError(t, err)
	defer c.Close()

	ev := next(t, c)
	assert.Equal(t, EventPairingCode, ev.Kind)
	assert.Regexp(t, regexp.MustCompile(`^[A-Z2-9]{4}-[A-Z2-9]{4}$`), ev.PairingCode)
}

func TestSimulatedDurableOpens(t *testing.T) {
	c, err := fastSimulated().Open(context.Background(), OpenOptions{SessionKey: "user-a"})
	require.NoError(t, err)
	defer c.Close()

	ev := next(t, c)
	assert.Equal(t, EventCredentialsUpdated, ev.Kind)
	assert.Len(t, ev.Credentials, 32)
	assert.Equal(t, EventOpened, next(t, c).Kind)
	assert.NoError(t, c.Send(context.Background(), "33612345678@s.whatsapp.net", "hi"))
}

func TestSimulatedReusesCredentials(t *testing.T) {
	c, err := fastSimulated().Open(context.Background(), OpenOptions{SessionKey: "user-a", Credentials: []byte("creds")})
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, EventOpened, next(t, c).Kind)
}

func TestSimulatedClose(t *testing.T) {
	s := &Simulated{PairingDelay: time.Hour, OpenDelay: time.Hour}
	c, err := s.Open(context.Background(), OpenOptions{SessionKey: "user-a", Credentials: []byte("creds")})
	require.NoError(t, err)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Error(t, c.Send(context.Background(), "x", "hi"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Open(ctx, OpenOptions{SessionKey: "user-a"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCloseReasonTerminal(t *testing.T) {
	assert.True(t, ReasonLoggedOut.Terminal())
	for _, r := range []CloseReason{ReasonUnknown, ReasonConnectionLost, ReasonMultideviceMismatch, ReasonConnectionClosed, ReasonConnectionReplaced, ReasonBadSession, ReasonRestartRequired} {
		assert.False(t, r.Terminal(), r.String())
	}
	assert.Equal(t, "unknown (999)", CloseReason(999).String())
}
