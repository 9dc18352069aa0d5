package relaunch

// Option configures a Relauncher.
type Option func(*Relauncher)

// WithResolver replaces the executable path lookup.
func WithResolver(fn Resolver) Option {
	return func(r *Relauncher) {
		if fn != nil {
			r.resolve = fn
		}
	}
}

// WithSpawner replaces the process starter.
func WithSpawner(s Spawner) Option {
	return func(r *Relauncher) {
		if s != nil {
			r.spawner = s
		}
	}
}

// WithArgs passes exactly args to the child (argv[1:]).
func WithArgs(args ...string) Option {
	return func(r *Relauncher) {
		r.argsMode = argsExplicit
		r.args = append([]string(nil), args...)
	}
}

// WithInheritedArgs passes the parent's own arguments (os.Args[1:]),
// read at the time of each call.
func WithInheritedArgs() Option {
	return func(r *Relauncher) {
		r.argsMode = argsInherit
		r.args = nil
	}
}

// WithEnv replaces the child's environment. An empty slice starts the
// child with no environment at all.
func WithEnv(env []string) Option {
	return func(r *Relauncher) {
		r.replaceEnv = true
		r.env = append(make([]string, 0, len(env)), env...)
	}
}

// WithExtraEnv appends KEY=VALUE pairs to the environment the child
// would otherwise get.
func WithExtraEnv(kv ...string) Option {
	return func(r *Relauncher) {
		r.extraEnv = append(r.extraEnv, kv...)
	}
}

// WithDir sets the child's working directory.
func WithDir(dir string) Option {
	return func(r *Relauncher) {
		r.dir = dir
	}
}

// WithoutStdio connects the child's standard streams to the null device
// instead of the parent's.
func WithoutStdio() Option {
	return func(r *Relauncher) {
		r.stdio = false
	}
}

// WithObserver registers an observer for every attempt.
func WithObserver(o Observer) Option {
	return func(r *Relauncher) {
		if o != nil {
			r.observers = append(r.observers, o)
		}
	}
}

// WithSpawnErrorHandler registers fn for swallowed spawn failures.
func WithSpawnErrorHandler(fn func(path string, err error)) Option {
	return WithObserver(ObserverFunc(func(a Attempt) {
		if a.Outcome != OutcomeSpawnFailed {
			return
		}
		var cause error = a.Err
		if se, ok := a.Err.(*SpawnError); ok {
			cause = se.Err
		}
		fn(a.Path, cause)
	}))
}

// WithLogger sets the logger. A nil logger silences the relauncher.
func WithLogger(l Logger) Option {
	return func(r *Relauncher) {
		if l == nil {
			l = nopLogger{}
		}
		r.logger = l
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...map[string]interface{}) {}
func (nopLogger) Warn(string, ...map[string]interface{})  {}
