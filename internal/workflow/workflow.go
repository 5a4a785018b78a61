// Package workflow defines the status transitions shared by annotation tasks
// and entities-project work items. It is pure; persistence applies a rule as
// a single conditional update.
package workflow

import "errors"

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusReview     Status = "review"
	StatusCompleted  Status = "completed"
	StatusBlocked    Status = "blocked"
)

// Kind selects the transition table.
type Kind string

const (
	KindAnnotation Kind = "annotation"
	KindWorkItem   Kind = "work_item"
)

type Action string

const (
	ActionClaim    Action = "claim"
	ActionStart    Action = "start"
	ActionSubmit   Action = "submit"
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
	ActionComplete Action = "complete"
	ActionBlock    Action = "block"
	ActionUnblock  Action = "unblock"
)

// Requirement names who may perform a transition.
type Requirement int

const (
	AnyMember Requirement = iota
	Assignee
	Manager
	AssigneeOrManager
)

var (
	ErrUnknownAction     = errors.New("action is not defined for this item kind")
	ErrInvalidTransition = errors.New("item is not in a state that allows this action")
	ErrNotAssignee       = errors.New("only the assignee can perform this action")
	ErrManagerRequired   = errors.New("manager role required")
	ErrAlreadyAssigned   = errors.New("item is already assigned")
)

// Rule is one edge of the state machine.
type Rule struct {
	Action Action
	From   []Status
	To     Status
	Actor  Requirement

	// RequireUnassigned restricts the edge to items with no assignee (claim).
	RequireUnassigned bool
}

// Allows reports whether the rule applies to an item in status s.
func (r Rule) Allows(s Status) bool {
	for _, f := range r.From {
		if f == s {
			return true
		}
	}
	return false
}

// Caller describes who is attempting a transition.
type Caller struct {
	UserID      uint64
	ManagerTier bool
}

// Authorize checks the rule's actor requirement against the item's current
// assignee.
func (r Rule) Authorize(caller Caller, assignee *uint64) error {
	isAssignee := assignee != nil && *assignee == caller.UserID

	switch r.Actor {
	case AnyMember:
		return nil
	case Assignee:
		if !isAssignee {
			return ErrNotAssignee
		}
	case Manager:
		if !caller.ManagerTier {
			return ErrManagerRequired
		}
	case AssigneeOrManager:
		if !isAssignee && !caller.ManagerTier {
			return ErrNotAssignee
		}
	}
	return nil
}

// Check validates a transition for an item currently in status with the given
// assignee. Authorization is checked before state so callers without
// permission never learn the item's state.
func (r Rule) Check(caller Caller, status Status, assignee *uint64) error {
	if err := r.Authorize(caller, assignee); err != nil {
		return err
	}
	if !r.Allows(status) {
		return ErrInvalidTransition
	}
	if r.RequireUnassigned && assignee != nil {
		return ErrAlreadyAssigned
	}
	return nil
}

var tables = map[Kind][]Rule{
	KindAnnotation: {
		{Action: ActionClaim, From: []Status{StatusPending}, To: StatusInProgress, Actor: AnyMember, RequireUnassigned: true},
		{Action: ActionStart, From: []Status{StatusPending}, To: StatusInProgress, Actor: Assignee},
		{Action: ActionSubmit, From: []Status{StatusInProgress}, To: StatusReview, Actor: Assignee},
		{Action: ActionApprove, From: []Status{StatusReview}, To: StatusCompleted, Actor: Manager},
		{Action: ActionReject, From: []Status{StatusReview}, To: StatusInProgress, Actor: Manager},
	},
	KindWorkItem: {
		{Action: ActionClaim, From: []Status{StatusPending}, To: StatusInProgress, Actor: AnyMember, RequireUnassigned: true},
		{Action: ActionStart, From: []Status{StatusPending}, To: StatusInProgress, Actor: Assignee},
		{Action: ActionComplete, From: []Status{StatusInProgress}, To: StatusCompleted, Actor: Manager},
		{Action: ActionBlock, From: []Status{StatusPending, StatusInProgress}, To: StatusBlocked, Actor: AssigneeOrManager},
		{Action: ActionUnblock, From: []Status{StatusBlocked}, To: StatusInProgress, Actor: AssigneeOrManager},
	},
}

var statuses = map[Kind][]Status{
	KindAnnotation: {StatusPending, StatusInProgress, StatusReview, StatusCompleted},
	KindWorkItem:   {StatusPending, StatusInProgress, StatusCompleted, StatusBlocked},
}

// Lookup returns the rule for action on items of kind k.
func Lookup(k Kind, action Action) (Rule, error) {
	for _, r := range tables[k] {
		if r.Action == action {
			return r, nil
		}
	}
	return Rule{}, ErrUnknownAction
}

// ValidStatus reports whether s belongs to the status set of kind k.
func ValidStatus(k Kind, s Status) bool {
	for _, v := range statuses[k] {
		if v == s {
			return true
		}
	}
	return false
}

// Statuses returns the status set of kind k.
func Statuses(k Kind) []Status {
	return append([]Status(nil), statuses[k]...)
}

// Actions returns the actions defined for kind k.
func Actions(k Kind) []Action {
	out := make([]Action, 0, len(tables[k]))
	for _, r := range tables[k] {
		out = append(out, r.Action)
	}
	return out
}
