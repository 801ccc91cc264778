package testenv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/platinummonkey/hub/pkg/assembly"
	"github.com/platinummonkey/hub/pkg/config"
	"github.com/platinummonkey/hub/pkg/container"
	"github.com/platinummonkey/hub/pkg/observability"
	"github.com/platinummonkey/hub/pkg/plugins"
	"github.com/platinummonkey/hub/pkg/storage"
)

// DefaultRDBMS is the database kind DBConnect uses when none is given
const DefaultRDBMS = storage.SQLiteBetter

// ErrRootNotFound is returned when no project root is found above the start directory
var ErrRootNotFound = errors.New("project root not found")

var (
	sharedMu   sync.Mutex
	assemblers = make(map[string]*assembly.Assembler)
)

// Env is an assembled test environment
type Env struct {
	Config     *config.Config
	Local      *config.LocalConfig
	LocalFound bool // test/data/cfg/local.json was read
	Result     *assembly.Result

	log  *observability.Logger
	pool storage.PoolConfig
}

type options struct {
	root      string
	cfg       *config.Config
	assembler *assembly.Assembler
	log       *observability.Logger
	pool      storage.PoolConfig
}

// Option configures New
type Option func(*options)

// WithRoot sets the project root. The default is found from the working directory.
func WithRoot(root string) Option {
	return func(o *options) { o.root = root }
}

// WithConfig replaces the default configuration. Its ProjectRoot is used
// unless WithRoot is also given.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithAssembler uses a instead of the assembler shared by the project
func WithAssembler(a *assembly.Assembler) Option {
	return func(o *options) { o.assembler = a }
}

// WithLogger sets the environment logger
func WithLogger(log *observability.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithPool sets the pool settings of DBConnect connections
func WithPool(pool storage.PoolConfig) Option {
	return func(o *options) { o.pool = pool }
}

// New assembles the container of a project and loads its local database settings
func New(ctx context.Context, opts ...Option) (*Env, error) {
	o := options{pool: storage.DefaultPoolConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = observability.Discard()
	}

	cfg, err := o.config()
	if err != nil {
		return nil, err
	}

	asm := o.assembler
	if asm == nil {
		asm = Shared(cfg, assembly.WithLogger(o.log))
	}
	res, err := asm.Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble %s: %w", cfg.ProjectRoot, err)
	}

	local, found, err := config.LoadLocal(cfg.ProjectRoot)
	if err != nil {
		return nil, err
	}
	if !found {
		o.log.WithField("file", filepath.Join(cfg.ProjectRoot, config.LocalConfigFile)).
			Debug("No local database config, using defaults")
	}

	return &Env{
		Config:     cfg,
		Local:      local,
		LocalFound: found,
		Result:     res,
		log:        o.log,
		pool:       o.pool,
	}, nil
}

func (o *options) config() (*config.Config, error) {
	var cfg config.Config
	if o.cfg != nil {
		cfg = *o.cfg
	} else {
		cfg = config.Defaults()
		cfg.ProjectRoot = ""
	}

	root := o.root
	if root == "" {
		root = cfg.ProjectRoot
	}
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		if root, err = FindRoot(wd); err != nil {
			return nil, err
		}
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}
	cfg.ProjectRoot = abs

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// Shared returns the assembler of cfg.ProjectRoot, creating it on first use.
// opts apply only when the assembler is created.
func Shared(cfg *config.Config, opts ...assembly.Option) *assembly.Assembler {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if a, ok := assemblers[cfg.ProjectRoot]; ok {
		return a
	}
	a := assembly.NewAssembler(cfg, opts...)
	assemblers[cfg.ProjectRoot] = a
	return a
}

// FindRoot walks up from start to the first directory holding a node_modules
// directory or a plugin descriptor
func FindRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}

	for {
		if info, err := os.Stat(filepath.Join(dir, "node_modules")); err == nil && info.IsDir() {
			return dir, nil
		}
		for _, name := range plugins.DescriptorFiles {
			if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w above %s", ErrRootNotFound, start)
		}
		dir = parent
	}
}

// Container returns the assembled container
func (e *Env) Container() *container.Container {
	return e.Result.Container
}

// Get resolves id from the assembled container
func (e *Env) Get(ctx context.Context, id string) (any, error) {
	return e.Result.Container.Get(ctx, id)
}

// DBConfig returns the connection settings of kind. An empty kind means DefaultRDBMS.
func (e *Env) DBConfig(kind storage.RDBMS) (*storage.DBConfig, error) {
	if kind == "" {
		kind = DefaultRDBMS
	}
	return e.Local.For(kind)
}

// DBConnect opens and pings a test database. An empty kind means DefaultRDBMS.
// The caller closes the connection.
func (e *Env) DBConnect(ctx context.Context, kind storage.RDBMS) (*sql.DB, error) {
	if kind == "" {
		kind = DefaultRDBMS
	}
	cfg, err := e.DBConfig(kind)
	if err != nil {
		return nil, err
	}

	db, err := storage.Connect(ctx, kind, cfg, e.pool)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s test database: %w", kind, err)
	}
	e.log.WithField("rdbms", string(kind)).Debug("Test database connected")
	return db, nil
}
