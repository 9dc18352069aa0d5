package relaunch

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psantana5/relaunch/pkg/logging"
)

// recorder captures every launch handed to the spawner and every attempt.
type recorder struct {
	mu       sync.Mutex
	launches []Launch
	attempts []Attempt
	pid      int
	err      error
}

func (r *recorder) Spawn(l Launch) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.launches = append(r.launches, l)
	if r.err != nil {
		return 0, r.err
	}
	return r.pid, nil
}

func (r *recorder) Observe(a Attempt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, a)
}

func fixedPath(p string) Resolver {
	return func() (string, error) { return p, nil }
}

func TestRelaunchSpawnsResolvedPath(t *testing.T) {
	rec := &recorder{pid: 4242}
	r := New(
		WithResolver(fixedPath("/opt/app/bin/app")),
		WithSpawner(rec),
		WithObserver(rec),
		WithLogger(nil),
	)

	require.NoError(t, r.Relaunch())

	require.Len(t, rec.launches, 1)
	l := rec.launches[0]
	assert.Equal(t, "/opt/app/bin/app", l.Path)
	assert.Nil(t, l.Args, "default policy passes no arguments")
	assert.Nil(t, l.Env, "default policy inherits the environment")
	assert.True(t, l.Stdio)
	assert.Empty(t, l.Dir)

	require.Len(t, rec.attempts, 1)
	a := rec.attempts[0]
	assert.Equal(t, OutcomeSpawned, a.Outcome)
	assert.Equal(t, 4242, a.PID)
	assert.NoError(t, a.Err)
	assert.False(t, a.CompletedAt.Before(a.StartedAt))
}

func TestRelaunchPathFailureSkipsSpawn(t *testing.T) {
	cause := errors.New("readlink /proc/self/exe: no such file or directory")
	rec := &recorder{}
	r := New(
		WithResolver(func() (string, error) { return "", cause }),
		WithSpawner(rec),
		WithObserver(rec),
		WithLogger(nil),
	)

	err := r.Relaunch()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExecutablePathUnavailable)
	assert.ErrorIs(t, err, cause)

	var perr *PathError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, cause, perr.Err)

	assert.Empty(t, rec.launches, "no spawn may be attempted")
	require.Len(t, rec.attempts, 1)
	assert.Equal(t, OutcomePathUnavailable, rec.attempts[0].Outcome)
	assert.Empty(t, rec.attempts[0].Path)
}

func TestRelaunchEmptyPathIsUnavailable(t *testing.T) {
	rec := &recorder{}
	r := New(WithResolver(fixedPath("")), WithSpawner(rec), WithLogger(nil))

	assert.ErrorIs(t, r.Relaunch(), ErrExecutablePathUnavailable)
	assert.Empty(t, rec.launches)
}

func TestRelaunchSwallowsSpawnFailure(t *testing.T) {
	var buf bytes.Buffer
	spawnErr := errors.New("fork/exec /opt/app: permission denied")
	rec := &recorder{err: spawnErr}

	var handled []error
	r := New(
		WithResolver(fixedPath("/opt/app")),
		WithSpawner(rec),
		WithObserver(rec),
		WithSpawnErrorHandler(func(path string, err error) {
			assert.Equal(t, "/opt/app", path)
			handled = append(handled, err)
		}),
		WithLogger(logging.NewLoggerTo(&buf, logging.DEBUG, false)),
	)

	require.NoError(t, r.Relaunch())

	assert.Equal(t, []error{spawnErr}, handled)
	require.Len(t, rec.attempts, 1)
	assert.Equal(t, OutcomeSpawnFailed, rec.attempts[0].Outcome)

	var serr *SpawnError
	require.ErrorAs(t, rec.attempts[0].Err, &serr)
	assert.Equal(t, "/opt/app", serr.Path)
	assert.ErrorIs(t, serr, spawnErr)

	assert.Contains(t, buf.String(), "WARN: relaunch spawn failed")
}

func TestRelaunchNonExecutableFileReturnsNil(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a-binary")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0644))

	var outcome Outcome
	r := New(
		WithResolver(fixedPath(path)),
		WithObserver(ObserverFunc(func(a Attempt) { outcome = a.Outcome })),
		WithoutStdio(),
		WithLogger(nil),
	)

	assert.NoError(t, r.Relaunch())
	assert.Equal(t, OutcomeSpawnFailed, outcome)
}

func TestLaunchPolicies(t *testing.T) {
	tests := []struct {
		name  string
		opts  []Option
		check func(t *testing.T, l Launch)
	}{
		{
			name: "inherited args",
			opts: []Option{WithInheritedArgs()},
			check: func(t *testing.T, l Launch) {
				if len(os.Args) > 1 {
					assert.Equal(t, os.Args[1:], l.Args)
				} else {
					assert.Empty(t, l.Args)
				}
			},
		},
		{
			name: "explicit args",
			opts: []Option{WithArgs("serve", "--addr", ":9000")},
			check: func(t *testing.T, l Launch) {
				assert.Equal(t, []string{"serve", "--addr", ":9000"}, l.Args)
			},
		},
		{
			name: "extra env appends to inherited",
			opts: []Option{WithExtraEnv("RELAUNCHED=1")},
			check: func(t *testing.T, l Launch) {
				require.NotNil(t, l.Env)
				assert.Equal(t, len(os.Environ())+1, len(l.Env))
				assert.Equal(t, "RELAUNCHED=1", l.Env[len(l.Env)-1])
			},
		},
		{
			name: "empty env is not inherited",
			opts: []Option{WithEnv([]string{})},
			check: func(t *testing.T, l Launch) {
				assert.NotNil(t, l.Env)
				assert.Empty(t, l.Env)
			},
		},
		{
			name: "replaced env plus extra",
			opts: []Option{WithEnv([]string{"A=1"}), WithExtraEnv("B=2")},
			check: func(t *testing.T, l Launch) {
				assert.Equal(t, []string{"A=1", "B=2"}, l.Env)
			},
		},
		{
			name: "dir and stdio",
			opts: []Option{WithDir("/srv"), WithoutStdio()},
			check: func(t *testing.T, l Launch) {
				assert.Equal(t, "/srv", l.Dir)
				assert.False(t, l.Stdio)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{pid: 1}
			opts := append([]Option{WithResolver(fixedPath("/bin/app")), WithSpawner(rec), WithLogger(nil)}, tt.opts...)
			require.NoError(t, New(opts...).Relaunch())
			require.Len(t, rec.launches, 1)
			tt.check(t, rec.launches[0])
		})
	}
}

func TestExplicitArgsAreCopied(t *testing.T) {
	args := []string{"a", "b"}
	rec := &recorder{pid: 1}
	r := New(WithResolver(fixedPath("/bin/app")), WithSpawner(rec), WithArgs(args...), WithLogger(nil))

	args[0] = "mutated"
	require.NoError(t, r.Relaunch())
	assert.Equal(t, []string{"a", "b"}, rec.launches[0].Args)
}

func TestConcurrentCallsAreIndependent(t *testing.T) {
	var resolves, spawns atomic.Int32
	r := New(
		WithResolver(func() (string, error) {
			resolves.Add(1)
			return "/bin/app", nil
		}),
		WithSpawner(SpawnerFunc(func(Launch) (int, error) {
			return int(spawns.Add(1)), nil
		})),
		WithLogger(nil),
	)

	const callers = 8
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, r.Relaunch())
		}()
	}
	wg.Wait()

	assert.EqualValues(t, callers, resolves.Load())
	assert.EqualValues(t, callers, spawns.Load())
}

func TestPanickingObserverDoesNotReachCaller(t *testing.T) {
	var buf bytes.Buffer
	var after bool
	r := New(
		WithResolver(fixedPath("/bin/app")),
		WithSpawner(SpawnerFunc(func(Launch) (int, error) { return 7, nil })),
		WithObserver(ObserverFunc(func(Attempt) { panic("observer bug") })),
		WithObserver(ObserverFunc(func(Attempt) { after = true })),
		WithLogger(logging.NewLoggerTo(&buf, logging.WARN, false)),
	)

	require.NotPanics(t, func() {
		assert.NoError(t, r.Relaunch())
	})
	assert.True(t, after, "later observers still run")
	assert.Contains(t, buf.String(), "relaunch observer panicked")
}

func TestPathErrorMessage(t *testing.T) {
	err := &PathError{Err: errors.New("boom")}
	assert.Equal(t, "relaunch: executable path unavailable: boom", err.Error())
	assert.Equal(t, time.Duration(0), Attempt{}.Duration())
}
