// Package sim implements the discrete-event executor: the min-heap of
// pending agent events, the Message/Feedback protocol between it and the
// controller, and the main run loop.
package sim

import "fmt"

// Status is the outcome an executed event reports to the controller.
type Status int

const (
	SubmitOK Status = iota
	Damaged
	PlanInfeasible
	CannotSenseRegion
)

func (s Status) String() string {
	switch s {
	case SubmitOK:
		return "submit-ok"
	case Damaged:
		return "damaged"
	case PlanInfeasible:
		return "plan-infeasible"
	case CannotSenseRegion:
		return "cannot-sense-region"
	default:
		return "unknown"
	}
}

// Message is sent from the executor to the controller after every agent
// action. IdealUsed/RealUsed/CategoryID are populated on submit outcomes so
// the controller can fold the observation into the sense-map, which it
// alone owns and mutates.
type Message struct {
	ID       string
	Status   Status
	AgentID  int
	RegionID int
	Time     float64

	CategoryID int
	IdealUsed  float64
	RealUsed   float64
}

func (m Message) String() string {
	return fmt.Sprintf("Message(%.2f, agent=%d, %s)", m.Time, m.AgentID, m.Status)
}

// FeedbackStatus is the controller's response to a Message.
type FeedbackStatus int

const (
	Continue FeedbackStatus = iota
	Repair
	SkipSample
)

// Feedback is the controller's response, driving what the executor does
// next for the reporting agent (and, on Repair, any other agents in scope).
type Feedback struct {
	Status    FeedbackStatus
	RepairSet []int // agent ids the controller replanned, only set on Repair
}

// Controller is the executor's cooperative counterpart: it owns allocation
// and the self-repair decision. The executor calls it at fixed turn-taking
// points and never runs concurrently with it.
type Controller interface {
	// Start performs the initial allocation; called once before the run
	// loop begins.
	Start()
	// OnMessage is called once per event with the outcome of that event,
	// returning the executor's next move.
	OnMessage(msg Message) Feedback
}
