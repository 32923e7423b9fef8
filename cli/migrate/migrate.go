// Package migrate moves a database between schema versions using the
// migrations compiled into the binary.
//
// A run takes the run lock, reads the ledger, plans the steps between the
// current and the target version and applies them one transaction at a
// time. A failing step stops the run; steps already applied stay applied,
// and running the command again resumes from there.
package migrate

import (
	"context"
	"database/sql"
	"time"

	"github.com/aceman-ct/aceman/cli/internal/fsm"
	"github.com/aceman-ct/aceman/cli/migrate/database"
	"github.com/aceman-ct/aceman/cli/migrate/source"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Outcome describes how a run ended.
type Outcome string

const (
	OutcomeApplied           Outcome = "applied"
	OutcomeNoMigrationsToRun Outcome = "no_migrations_to_run"
	OutcomeFailed            Outcome = "failed"
)

// Result reports what a run did. It is returned on failure too, with To
// set to the version the run stopped at.
type Result struct {
	Direction source.Direction
	// From is the version read from the ledger before the first step.
	From source.Version
	// To is the version the ledger holds when the run ended.
	To     source.Version
	Target source.Version
	// Applied lists the versions migrated in this run, in execution order.
	Applied []source.Version
	Outcome Outcome
	// States lists the runner states the run went through.
	States []fsm.StateType
}

// Runner drives a database to a target version. It is safe to reuse but
// runs are not meant to overlap; concurrent runs against one database are
// serialized by the run lock.
type Runner struct {
	registry *source.Registry
	db       *sql.DB
	dialect  database.Dialect
	config   database.Config

	// Logger is the logger used for run and step logs.
	Logger  *log.Logger
	metrics *Metrics
}

type Option func(*Runner)

func WithLogger(logger *log.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithConfig sets the ledger location and lock behavior.
func WithConfig(config database.Config) Option {
	return func(r *Runner) {
		r.config = config
	}
}

func WithMetrics(m *Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// NewRunner returns a runner applying the migrations of registry to db.
// The caller keeps ownership of db.
func NewRunner(registry *source.Registry, db *sql.DB, dialect database.Dialect, opts ...Option) (*Runner, error) {
	if registry == nil {
		return nil, errors.New("migrate: registry is nil")
	}
	if db == nil {
		return nil, errors.New("migrate: database handle is nil")
	}
	if dialect == nil {
		return nil, errors.New("migrate: dialect is nil")
	}
	r := &Runner{
		registry: registry,
		db:       db,
		dialect:  dialect,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.Logger == nil {
		r.Logger = log.New()
	}
	r.config = r.config.WithDefaults()
	return r, nil
}

// Registry returns the migrations the runner applies.
func (r *Runner) Registry() *source.Registry {
	return r.registry
}

// MigrateUp applies every pending migration.
func (r *Runner) MigrateUp(ctx context.Context) (*Result, error) {
	return r.MigrateUpToVersion(ctx, nil)
}

// MigrateUpToVersion applies pending migrations up to and including target,
// or all of them when target is nil. Nothing to apply is not an error; the
// result then has OutcomeNoMigrationsToRun.
func (r *Runner) MigrateUpToVersion(ctx context.Context, target *source.Version) (*Result, error) {
	return r.run(ctx, source.Up, target)
}

// MigrateDownToVersion reverts applied migrations above target, newest
// first. source.NilVersion reverts everything.
func (r *Runner) MigrateDownToVersion(ctx context.Context, target source.Version) (*Result, error) {
	return r.run(ctx, source.Down, &target)
}

func (r *Runner) run(ctx context.Context, dir source.Direction, target *source.Version) (res *Result, err error) {
	rc := &runContext{
		ctx:       ctx,
		runner:    r,
		direction: dir,
		result:    &Result{Direction: dir, Outcome: OutcomeFailed, States: []fsm.StateType{Idle}},
		logger:    r.Logger.WithField("direction", dir),
	}
	defer func() {
		r.metrics.observeRun(rc.result)
	}()

	// the registry alone decides whether the target exists, so an unknown
	// target never reaches the database
	rc.result.Target = r.registry.Last()
	if target != nil {
		rc.result.Target = *target
	}
	if err := r.registry.Resolve(rc.result.Target); err != nil {
		rc.logger.WithError(err).Error("migration run rejected")
		return rc.result, err
	}

	session, err := database.Open(ctx, r.db, r.dialect, r.config)
	if err != nil {
		return rc.result, err
	}
	defer session.Close()
	rc.session = session

	if err := session.Lock(ctx); err != nil {
		return rc.result, err
	}
	defer func() {
		err = unlockErr(ctx, session, err)
	}()

	machine := newStateMachine()
	if err := machine.SendEvent(startRun, rc); err != nil {
		rc.err = multierror.Append(rc.err, err)
	}
	rc.result.States = machine.History
	if !machine.IsTerminal() {
		rc.err = multierror.Append(rc.err, errors.Errorf("migration run stopped in state %s", machine.Current))
	}
	return rc.result, rc.err
}

// unlockErr releases the run lock and returns a combined error
// if prevErr is not nil.
func unlockErr(ctx context.Context, s *database.Session, prevErr error) error {
	if err := s.Unlock(ctx); err != nil {
		if prevErr == nil {
			return err
		}
		return multierror.Append(prevErr, err)
	}
	return prevErr
}

// Status reports which migrations are applied. It takes no lock and
// creates nothing.
func (r *Runner) Status(ctx context.Context) (*Status, error) {
	session, err := database.Open(ctx, r.db, r.dialect, r.config)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	status := NewStatus()
	for _, d := range r.registry.All() {
		status.Append(&MigrationStatus{Version: d.Version, Name: d.Name, IsPresent: true})
	}

	exists, err := session.Ledger.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		status.Consistent = true
		return status, nil
	}
	current, err := session.Ledger.CurrentVersion(ctx)
	if err != nil {
		return nil, err
	}
	applied, err := session.Ledger.AppliedVersions(ctx)
	if err != nil {
		return nil, err
	}
	status.Current = current
	for _, v := range applied {
		status.Append(&MigrationStatus{Version: v, IsApplied: true})
	}
	status.Consistent = checkLedger(r.registry, current, applied) == nil
	return status, nil
}

// runContext is the state shared by the runner's state machine actions.
type runContext struct {
	ctx       context.Context
	runner    *Runner
	session   *database.Session
	direction source.Direction
	plan      []source.Descriptor
	result    *Result
	err       error
	logger    *log.Entry
}

// makePlan reads the ledger and returns the steps to run, in order.
func (rc *runContext) makePlan() ([]source.Descriptor, error) {
	registry := rc.runner.registry
	target := rc.result.Target

	ledger := rc.session.Ledger
	if err := ledger.EnsureInitialized(rc.ctx); err != nil {
		return nil, err
	}
	current, err := ledger.CurrentVersion(rc.ctx)
	if err != nil {
		return nil, err
	}
	rc.result.From, rc.result.To = current, current

	applied, err := ledger.AppliedVersions(rc.ctx)
	if err != nil {
		return nil, err
	}
	if err := checkLedger(registry, current, applied); err != nil {
		return nil, err
	}

	switch rc.direction {
	case source.Up:
		if target <= current {
			return nil, ErrNoMigrationsToRun
		}
		return registry.DescriptorsBetween(current, target), nil
	case source.Down:
		if target >= current {
			return nil, ErrNoMigrationsToRun
		}
		return source.Reverse(registry.DescriptorsBetween(target, current)), nil
	}
	return nil, errors.Errorf("unknown direction %q", rc.direction)
}

// applyStep runs one step and its ledger write in a single transaction.
func (rc *runContext) applyStep(d source.Descriptor) error {
	ledger := rc.session.Ledger
	record := func(ctx context.Context, tx *sql.Tx) error {
		if rc.direction == source.Down {
			return ledger.RecordUnapplied(ctx, tx, d.Version)
		}
		return ledger.RecordApplied(ctx, tx, d.Version)
	}

	start := time.Now()
	err := rc.session.Engine.Apply(rc.ctx, d.SQL(rc.direction), record)
	rc.runner.metrics.observeStep(rc.direction, err, time.Since(start))
	if err != nil {
		return &StepError{Version: d.Version, Name: d.Name, Direction: rc.direction, Err: err}
	}
	rc.logger.WithFields(log.Fields{
		"version":  d.Version.String(),
		"name":     d.Name,
		"duration": time.Since(start).String(),
	}).Info("migration step applied")
	return nil
}
