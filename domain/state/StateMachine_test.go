package state_test

import (
	"taskflow/domain/state"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("StateMachine", func() {
	Describe("FindState", func() {
		It("should find defined states by name", func() {
			s, found := state.TaskStateMachine.FindState("DRAFT")
			Expect(found).To(BeTrue())
			Expect(s).To(Equal(state.StateDraft))

			s, found = state.TaskStateMachine.FindState("COMPLETED")
			Expect(found).To(BeTrue())
			Expect(s).To(Equal(state.StateCompleted))

			s, found = state.TaskStateMachine.FindState("NOT_EXIST")
			Expect(found).To(BeFalse())
			Expect(s).To(Equal(state.State{}))
		})
	})

	Describe("AvailableTransitions", func() {
		It("should filter by from state, actor and action", func() {
			r := state.TaskStateMachine.AvailableTransitions(state.StateDraft.Name, state.ActorWorker, "")
			Expect(len(r)).To(Equal(1))
			Expect(r[0].To).To(Equal(state.StateSubmitted))

			r = state.TaskStateMachine.AvailableTransitions(state.StateDraft.Name, state.ActorApprover, "")
			Expect(r).To(BeEmpty())

			r = state.TaskStateMachine.AvailableTransitions(
				state.StateUnderReview.Name, state.ActorApprover, state.ActionApprove)
			Expect(len(r)).To(Equal(2))
			Expect(r[0].To).To(Equal(state.StateApproved))
			Expect(r[1].To).To(Equal(state.StateSubmittedToClient))

			r = state.TaskStateMachine.AvailableTransitions(state.StateClientReply.Name, state.ActorApprover, "")
			Expect(len(r)).To(Equal(2))

			r = state.TaskStateMachine.AvailableTransitions("", "", "")
			Expect(len(r)).To(Equal(12))
		})

		It("should have no outgoing transitions from terminal states", func() {
			Expect(state.TaskStateMachine.AvailableTransitions(state.StateApproved.Name, "", "")).To(BeEmpty())
			Expect(state.TaskStateMachine.AvailableTransitions(state.StateCompleted.Name, "", "")).To(BeEmpty())
		})

		It("should keep the client reply transition exclusive to the client actor", func() {
			r := state.TaskStateMachine.AvailableTransitions(state.StateSubmittedToClient.Name, state.ActorClient, "")
			Expect(len(r)).To(Equal(1))
			Expect(r[0].Action).To(Equal(state.ActionClientReply))

			Expect(state.TaskStateMachine.AvailableTransitions(
				state.StateSubmittedToClient.Name, state.ActorWorker, "")).To(BeEmpty())
		})
	})

	Describe("State categories", func() {
		It("should categorize states for completion computing", func() {
			Expect(state.StateDraft.Category).To(Equal(state.Pending))
			Expect(state.StateSubmitted.Category).To(Equal(state.InProgress))
			Expect(state.StateUnderReview.Category).To(Equal(state.InProgress))
			Expect(state.StateReturnedForRevision.Category).To(Equal(state.InProgress))
			Expect(state.StateSubmittedToClient.Category).To(Equal(state.InProgress))
			Expect(state.StateClientReply.Category).To(Equal(state.InProgress))
			Expect(state.StateApproved.Category).To(Equal(state.Done))
			Expect(state.StateCompleted.Category).To(Equal(state.Done))
		})
	})
})
