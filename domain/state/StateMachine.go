package state

// Category derives a task's completion status from its current state.
type Category uint

const (
	Pending Category = iota
	InProgress
	Done
)

type State struct {
	Name     string   `json:"name"`
	Category Category `json:"category"`
}

// Actor role names, aligned with the project member roles.
const (
	ActorWorker   = "worker"
	ActorApprover = "manager"
	ActorClient   = "client"
)

// Actions a transition may be triggered by.
const (
	ActionSubmit                = "submit"
	ActionStartReview           = "start-review"
	ActionApprove               = "approve"
	ActionReject                = "reject"
	ActionClientReply           = "client-reply"
	ActionAcceptClientDocuments = "accept-client-documents"
	ActionRequestReupload       = "request-reupload"
)

type Transition struct {
	Action string `json:"action"`
	Actor  string `json:"actor"`
	From   State  `json:"from"`
	To     State  `json:"to"`
}

// stateless object, just used for state computing
type StateMachine struct {
	States      []State      `json:"states"`
	Transitions []Transition `json:"transitions"`
}

var (
	StateDraft               = State{Name: "DRAFT", Category: Pending}
	StateSubmitted           = State{Name: "SUBMITTED", Category: InProgress}
	StateUnderReview         = State{Name: "UNDER_REVIEW", Category: InProgress}
	StateApproved            = State{Name: "APPROVED", Category: Done}
	StateReturnedForRevision = State{Name: "RETURNED_FOR_REVISION", Category: InProgress}
	StateSubmittedToClient   = State{Name: "SUBMITTED_TO_CLIENT", Category: InProgress}
	StateClientReply         = State{Name: "CLIENT_REPLY", Category: InProgress}
	StateCompleted           = State{Name: "COMPLETED", Category: Done}
)

// TaskStateMachine is the fixed machine every task follows. The approve
// action appears twice: routing between the two targets is decided by
// whether the latest assignment carries client document requests.
var TaskStateMachine = NewStateMachine(
	[]State{StateDraft, StateSubmitted, StateUnderReview, StateApproved,
		StateReturnedForRevision, StateSubmittedToClient, StateClientReply, StateCompleted},
	[]Transition{
		{Action: ActionSubmit, Actor: ActorWorker, From: StateDraft, To: StateSubmitted},
		{Action: ActionSubmit, Actor: ActorWorker, From: StateReturnedForRevision, To: StateSubmitted},
		{Action: ActionStartReview, Actor: ActorApprover, From: StateSubmitted, To: StateUnderReview},
		{Action: ActionApprove, Actor: ActorApprover, From: StateSubmitted, To: StateApproved},
		{Action: ActionApprove, Actor: ActorApprover, From: StateSubmitted, To: StateSubmittedToClient},
		{Action: ActionApprove, Actor: ActorApprover, From: StateUnderReview, To: StateApproved},
		{Action: ActionApprove, Actor: ActorApprover, From: StateUnderReview, To: StateSubmittedToClient},
		{Action: ActionReject, Actor: ActorApprover, From: StateSubmitted, To: StateReturnedForRevision},
		{Action: ActionReject, Actor: ActorApprover, From: StateUnderReview, To: StateReturnedForRevision},
		{Action: ActionClientReply, Actor: ActorClient, From: StateSubmittedToClient, To: StateClientReply},
		{Action: ActionAcceptClientDocuments, Actor: ActorApprover, From: StateClientReply, To: StateCompleted},
		{Action: ActionRequestReupload, Actor: ActorApprover, From: StateClientReply, To: StateSubmittedToClient},
	})

func NewStateMachine(states []State, transitions []Transition) *StateMachine {
	return &StateMachine{States: states, Transitions: transitions}
}

func (sm *StateMachine) FindState(name string) (State, bool) {
	for _, s := range sm.States {
		if s.Name == name {
			return s, true
		}
	}
	return State{}, false
}

// AvailableTransitions filters transitions by from-state name, actor and
// action; empty arguments match everything.
func (sm *StateMachine) AvailableTransitions(fromState, actor, action string) []Transition {
	r := []Transition{}
	for _, transition := range sm.Transitions {
		if (fromState == "" || fromState == transition.From.Name) &&
			(actor == "" || actor == transition.Actor) &&
			(action == "" || action == transition.Action) {
			r = append(r, transition)
		}
	}
	return r
}
