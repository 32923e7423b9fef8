package migrate

import (
	"github.com/aceman-ct/aceman/cli/internal/fsm"
	"github.com/aceman-ct/aceman/cli/migrate/source"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	Idle     fsm.StateType = "Idle"
	Planning fsm.StateType = "Planning"
	Applying fsm.StateType = "Applying"
	Done     fsm.StateType = "Done"
	Failed   fsm.StateType = "Failed"

	startRun     fsm.EventType = "StartRun"
	planReady    fsm.EventType = "PlanReady"
	nothingToRun fsm.EventType = "NothingToRun"
	stepsApplied fsm.EventType = "StepsApplied"
	failRun      fsm.EventType = "FailRun"
)

func newStateMachine() *fsm.StateMachine {
	return fsm.New(Idle, fsm.States{
		Idle: fsm.State{
			Events: fsm.Events{
				startRun: Planning,
			},
		},
		Planning: fsm.State{
			Action: &planningAction{},
			Events: fsm.Events{
				planReady:    Applying,
				nothingToRun: Done,
				failRun:      Failed,
			},
		},
		Applying: fsm.State{
			Action: &applyingAction{},
			Events: fsm.Events{
				stepsApplied: Done,
				failRun:      Failed,
			},
		},
		Done: fsm.State{
			Action: fsm.ActionFunc(reportDone),
		},
		Failed: fsm.State{
			Action: fsm.ActionFunc(reportFailed),
		},
	})
}

type planningAction struct{}

func (a *planningAction) Execute(eventCtx fsm.EventContext) fsm.EventType {
	rc := eventCtx.(*runContext)
	plan, err := rc.makePlan()
	if errors.Is(err, ErrNoMigrationsToRun) {
		rc.result.Outcome = OutcomeNoMigrationsToRun
		return nothingToRun
	}
	if err != nil {
		rc.err = err
		return failRun
	}
	rc.plan = plan
	rc.logger.WithField("steps", len(plan)).Debugf("planned migration from %s to %s", rc.result.From, rc.result.Target)
	return planReady
}

type applyingAction struct{}

func (a *applyingAction) Execute(eventCtx fsm.EventContext) fsm.EventType {
	rc := eventCtx.(*runContext)
	for i, d := range rc.plan {
		if err := rc.ctx.Err(); err != nil {
			rc.err = errors.Wrapf(err, "migration stopped before %s", d)
			return failRun
		}
		if err := rc.applyStep(d); err != nil {
			rc.err = err
			return failRun
		}
		rc.result.Applied = append(rc.result.Applied, d.Version)
		// the cursor is the highest version still applied
		if rc.direction == source.Up {
			rc.result.To = d.Version
		} else if i+1 < len(rc.plan) {
			rc.result.To = rc.plan[i+1].Version
		} else {
			rc.result.To = rc.result.Target
		}
		if i+1 < len(rc.plan) {
			if err := rc.session.RefreshLock(rc.ctx); err != nil {
				rc.err = err
				return failRun
			}
		}
	}
	rc.result.Outcome = OutcomeApplied
	return stepsApplied
}

func reportDone(eventCtx fsm.EventContext) fsm.EventType {
	rc := eventCtx.(*runContext)
	if rc.result.Outcome == OutcomeNoMigrationsToRun {
		rc.logger.WithField("version", rc.result.To.String()).Info("no migrations to run")
		return fsm.NoOp
	}
	rc.logger.WithFields(log.Fields{
		"from":  rc.result.From.String(),
		"to":    rc.result.To.String(),
		"steps": len(rc.result.Applied),
	}).Info("migrations applied")
	return fsm.NoOp
}

func reportFailed(eventCtx fsm.EventContext) fsm.EventType {
	rc := eventCtx.(*runContext)
	rc.result.Outcome = OutcomeFailed
	rc.logger.WithError(rc.err).WithField("version", rc.result.To.String()).Error("migration run halted")
	return fsm.NoOp
}
