package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeEngineScript mimics the helper protocol: it acknowledges register and
// listen, then emits one event of each kind and exits when stdin closes.
const fakeEngineScript = `
read line
echo '{"type":"result","op":"register","ok":true}'
read line
echo '{"type":"result","op":"listen","ok":true}'
echo '{"type":"status","message":"Listening for pairing notifications"}'
echo '{"type":"server","name":"Alpha","ip":"192.0.2.1","port":28015,"playerId":"76561198000000000","playerToken":"-123456"}'
echo '{"type":"entity","entityId":42,"entityType":"alarm","entityName":"Front Door","ip":"192.0.2.1","port":28015,"name":"Alpha"}'
echo '{"type":"error","message":"transient push failure"}'
cat > /dev/null
`

func startFakeEngine(t *testing.T, script string) *ProcessEngine {
	t.Helper()
	e, err := StartProcess(context.Background(), "/bin/sh", "-c", script)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Destroy() })
	return e
}

func nextEvent(t *testing.T, e Engine) Event {
	t.Helper()
	select {
	case ev, ok := <-e.Events():
		require.True(t, ok, "event channel closed early")
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for engine event")
		return nil
	}
}

func TestProcessEngine_RegisterListenAndEvents(t *testing.T) {
	e := startFakeEngine(t, fakeEngineScript)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, e.Register(ctx, "steam-token"))
	require.NoError(t, e.Listen(ctx))

	require.Equal(t, Status{Message: "Listening for pairing notifications"}, nextEvent(t, e))
	require.Equal(t, ServerPaired{
		Name:        "Alpha",
		IP:          "192.0.2.1",
		Port:        28015,
		PlayerID:    "76561198000000000",
		PlayerToken: "-123456",
	}, nextEvent(t, e))
	require.Equal(t, EntityPaired{
		EntityID:   42,
		EntityType: "alarm",
		EntityName: "Front Door",
		IP:         "192.0.2.1",
		Port:       28015,
		ServerName: "Alpha",
	}, nextEvent(t, e))
	require.Equal(t, Failure{Message: "transient push failure"}, nextEvent(t, e))
}

func TestProcessEngine_RegisterRejected(t *testing.T) {
	e := startFakeEngine(t, `
read line
echo '{"type":"result","op":"register","ok":false,"error":"token rejected"}'
cat > /dev/null
`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := e.Register(ctx, "bad-token")
	require.Error(t, err)
	require.Contains(t, err.Error(), "token rejected")
}

func TestProcessEngine_DestroyClosesEvents(t *testing.T) {
	e := startFakeEngine(t, `cat > /dev/null`)

	require.NoError(t, e.Destroy())
	require.NoError(t, e.Destroy(), "Destroy must be idempotent")

	select {
	case _, ok := <-e.Events():
		require.False(t, ok, "events channel must be closed after Destroy")
	case <-time.After(5 * time.Second):
		t.Fatal("events channel not closed after Destroy")
	}
}

func TestProcessEngine_CallFailsAfterExit(t *testing.T) {
	e := startFakeEngine(t, `exit 0`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// the helper exits immediately, so the command can never be answered
	err := e.Register(ctx, "token")
	require.Error(t, err)
}

func TestProcessFactory_RequiresCommand(t *testing.T) {
	factory := ProcessFactory("")
	_, err := factory(context.Background())
	require.Error(t, err)
}
