package shutdown

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psantana5/relaunch/pkg/logging"
)

func newManager(timeout time.Duration) (*Manager, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(timeout, logging.NewLoggerTo(&buf, logging.DEBUG, false)), &buf
}

func TestShutdownRunsLIFO(t *testing.T) {
	m, _ := newManager(time.Second)

	var order []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		m.Register(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	require.NoError(t, m.Shutdown())
	assert.Equal(t, []string{"third", "second", "first"}, order)
}

func TestShutdownJoinsErrors(t *testing.T) {
	m, buf := newManager(time.Second)
	boom := errors.New("boom")

	ran := false
	m.Register("after", func(context.Context) error { ran = true; return nil })
	m.Register("broken", func(context.Context) error { return boom })

	err := m.Shutdown()
	assert.ErrorIs(t, err, boom)
	assert.True(t, ran, "later steps still run")
	assert.Contains(t, buf.String(), "step=broken")
}

func TestShutdownTimeoutReachesHooks(t *testing.T) {
	m, _ := newManager(10 * time.Millisecond)
	m.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	assert.ErrorIs(t, m.Shutdown(), context.DeadlineExceeded)
}

func TestTriggerUnblocksWait(t *testing.T) {
	m, _ := newManager(time.Second)

	go m.Trigger("relaunched")
	require.NoError(t, m.Wait(context.Background()))

	m.Trigger("second call is ignored")
	assert.Equal(t, "relaunched", m.Reason())

	select {
	case <-m.Done():
	default:
		t.Fatal("Done should be closed")
	}
}

func TestWaitHonoursContext(t *testing.T) {
	m, _ := newManager(time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, m.Wait(ctx), context.DeadlineExceeded)
}

type closer struct{ closed bool }

func (c *closer) Close() error { c.closed = true; return nil }

func TestCloseResource(t *testing.T) {
	c := &closer{}
	require.NoError(t, CloseResource(c)(context.Background()))
	assert.True(t, c.closed)
}
