package sim

import (
	"container/heap"
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/elektrokombinacija/crowdsense/internal/agent"
	"github.com/elektrokombinacija/crowdsense/internal/task"
	"github.com/elektrokombinacija/crowdsense/internal/world"
)

// Config bundles the simulator's run parameters.
type Config struct {
	Horizon float64 // simulated-time budget; the run stops once exceeded
	Verbose bool
}

// DefaultConfig returns reasonable run parameters.
func DefaultConfig() Config {
	return Config{Horizon: 1000}
}

// Simulator is the single-threaded discrete-event executor. It owns the
// agents and the event heap; the Controller owns allocation and the
// sense-map, and is consulted at every turn-taking boundary.
type Simulator struct {
	agents     map[int]*agent.Agent
	agentOrder []int
	tasks      []*task.Task
	oracle     world.Oracle
	controller Controller
	cfg        Config
	log        *zap.SugaredLogger

	pending eventHeap
	seq     int
	now     float64
}

// New builds a Simulator over the given agents and tasks.
func New(agents map[int]*agent.Agent, tasks []*task.Task, oracle world.Oracle, controller Controller, cfg Config, log *zap.SugaredLogger) *Simulator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	order := make([]int, 0, len(agents))
	for id := range agents {
		order = append(order, id)
	}
	sort.Ints(order)
	return &Simulator{
		agents:     agents,
		agentOrder: order,
		tasks:      tasks,
		oracle:     oracle,
		controller: controller,
		cfg:        cfg,
		log:        log,
	}
}

func (s *Simulator) push(e *event) {
	e.seq = s.seq
	s.seq++
	heap.Push(&s.pending, e)
}

func (s *Simulator) scheduleNext(a *agent.Agent, from float64) {
	if a.IsBroken() || a.IsFinishedMissions() {
		return
	}
	duration := s.oracle.ComputeDuration(a)
	if duration < 0 {
		duration = 0
	}
	s.push(&event{time: from + duration, agentID: a.ID})
}

// removeEventsFor drops every pending event belonging to the given agent
// ids (used when the controller preempts their plans for repair).
func (s *Simulator) removeEventsFor(ids map[int]bool) {
	kept := s.pending[:0]
	for _, e := range s.pending {
		if !ids[e.agentID] {
			kept = append(kept, e)
		}
	}
	s.pending = kept
	heap.Init(&s.pending)
}

func (s *Simulator) allTasksFinished() bool {
	for _, t := range s.tasks {
		if t.Alive && !t.Finished {
			return false
		}
	}
	return true
}

// Run drives the event loop until the heap empties, the horizon elapses,
// every task finishes with no agent still mid-sample, or ctx is canceled.
func (s *Simulator) Run(ctx context.Context) error {
	s.controller.Start()

	for _, id := range s.agentOrder {
		s.push(&event{time: 0, agentID: id, init: true})
	}

	for s.pending.Len() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		e := heap.Pop(&s.pending).(*event)
		s.now = e.time
		if s.now > s.cfg.Horizon {
			return nil
		}
		if s.allTasksFinished() {
			// A task's counters reach zero when its samples begin; an agent
			// still Sensing has a submit (and possibly an overtime rollback)
			// to deliver before the run may stop.
			sensing := false
			for _, ag := range s.agents {
				if ag.State == agent.Sensing {
					sensing = true
					break
				}
			}
			if !sensing {
				return nil
			}
		}

		a, ok := s.agents[e.agentID]
		if !ok || a.IsBroken() {
			continue
		}

		if e.init {
			if err := a.Execute(); err != nil {
				return fmt.Errorf("sim: init agent %d: %w", a.ID, err)
			}
			s.scheduleNext(a, e.time)
			continue
		}

		msg, ok := s.step(a, e.time)
		if !ok {
			continue
		}

		feedback := s.controller.OnMessage(msg)
		switch feedback.Status {
		case Continue:
			s.scheduleNext(a, e.time)
		case SkipSample:
			s.skipCurrentStep(a, e.time)
			s.scheduleNext(a, e.time)
		case Repair:
			// Agents currently Sensing keep their pending completion event:
			// hot repair does not preempt an active sample (spec §4.5).
			ids := make(map[int]bool, len(feedback.RepairSet))
			for _, id := range feedback.RepairSet {
				if ra, ok := s.agents[id]; ok && ra.State == agent.Sensing {
					continue
				}
				ids[id] = true
			}
			s.removeEventsFor(ids)
			for id := range ids {
				if ra, ok := s.agents[id]; ok && !ra.IsBroken() {
					s.push(&event{time: e.time, agentID: ra.ID, init: true})
				}
			}
		}
	}
	return nil
}

// step executes one pending action for an agent already in Moving or
// Sensing, returning the Message to forward to the controller (or ok=false
// if nothing needed reporting).
func (s *Simulator) step(a *agent.Agent, now float64) (Message, bool) {
	switch a.State {
	case agent.Moving:
		if s.oracle.IsDamaged(a) {
			regID := -1
			if a.Cursor+1 < len(a.Steps) {
				regID = a.Steps[a.Cursor+1].Region.ID
			}
			a.SetBroken()
			return Message{ID: uuid.NewString(), Status: Damaged, AgentID: a.ID, RegionID: regID, Time: now, CategoryID: a.Category.ID}, true
		}
		if s.oracle.CanSense(a) {
			if err := a.Sense(now); err != nil {
				s.log.Warnw("sim: sense failed", "agent", a.ID, "error", err)
			}
			s.scheduleNext(a, now)
			return Message{}, false
		}
		regID := -1
		if a.Cursor+1 < len(a.Steps) {
			regID = a.Steps[a.Cursor+1].Region.ID
		}
		return Message{ID: uuid.NewString(), Status: CannotSenseRegion, AgentID: a.ID, RegionID: regID, Time: now, CategoryID: a.Category.ID}, true

	case agent.Sensing:
		step := a.Steps[a.Cursor+1]
		prevFinish := a.Steps[a.Cursor].FinishTime

		if err := a.SubmitTasks(now); err != nil {
			s.log.Warnw("sim: submit failed", "agent", a.ID, "error", err)
		}
		canFinish := a.CanFinishTaskInTime(now)

		status := SubmitOK
		if !canFinish {
			status = PlanInfeasible
		}
		return Message{
			ID:         uuid.NewString(),
			Status:     status,
			AgentID:    a.ID,
			RegionID:   step.Region.ID,
			Time:       now,
			CategoryID: a.Category.ID,
			IdealUsed:  step.IdealTimeUsed,
			RealUsed:   now - prevFinish,
		}, true

	default:
		return Message{}, false
	}
}

// skipCurrentStep advances the agent past its current target, used when the
// controller decides a sample should be abandoned rather than retried. From
// Moving the destination step is passed over with no transaction ever begun
// on it, so none of its subtasks is credited. From Sensing the in-progress
// subtasks are submitted and committed as usual.
func (s *Simulator) skipCurrentStep(a *agent.Agent, now float64) {
	switch a.State {
	case agent.Sensing:
		a.Steps[a.Cursor+1].FinishTime = now
		_ = a.SubmitTasks(now)
	case agent.Moving:
		a.Steps[a.Cursor+1].FinishTime = now
		a.Cursor++
		step := &a.Steps[a.Cursor]
		a.Current = step.Region
		a.Location = step.Region.Center()
		if a.Cursor+1 < len(a.Steps) {
			a.State = agent.Moving
		} else {
			a.State = agent.Idle
		}
	}
}

// Now returns the simulator's current time.
func (s *Simulator) Now() float64 { return s.now }
