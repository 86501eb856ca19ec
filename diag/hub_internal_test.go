package diag

import (
	gomock "github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func diagWithCode(code Code, target string) Diagnostic {
	return New(code, SeverityError, DomainRuntime, target, Scope{PatchRevision: 1}, "title", "message")
}

var _ = Describe("Hub", func() {
	Describe("CompileEnd", func() {
		It("replaces the authoring set wholesale instead of merging it with the previous compile's diagnostics", func() {
			h := NewHub(nil, 120)

			first := diagWithCode(CodeDanglingEdge, "a")
			h.CompileEnd("c1", false, []Diagnostic{first})
			Expect(h.Active()).To(ConsistOf(first))

			second := diagWithCode(CodeTypeMismatch, "b")
			h.CompileEnd("c2", true, []Diagnostic{second})

			Expect(h.Active()).To(ConsistOf(second))
			Expect(h.Active()).NotTo(ContainElement(first))
		})

		It("clears all authoring diagnostics on a clean compile", func() {
			h := NewHub(nil, 120)
			h.CompileEnd("c1", false, []Diagnostic{diagWithCode(CodeDanglingEdge, "a")})

			h.CompileEnd("c2", true, nil)

			Expect(h.Active()).To(BeEmpty())
		})
	})

	Describe("RuntimeHealthSnapshot", func() {
		It("adds a runtime diagnostic and expires it once its TTL window has elapsed", func() {
			h := NewHub(nil, 2)
			d := diagWithCode(CodeNaN, "x")

			h.RuntimeHealthSnapshot(0, nil, []Diagnostic{d})
			Expect(h.Active()).To(ConsistOf(d))

			h.RuntimeHealthSnapshot(1, nil, nil)
			Expect(h.Active()).To(ConsistOf(d))

			h.RuntimeHealthSnapshot(2, nil, nil)
			Expect(h.Active()).To(BeEmpty())
		})

		It("refreshes an existing code's TTL instead of duplicating it", func() {
			h := NewHub(nil, 2)
			d := diagWithCode(CodeFrameBudget, "y")

			h.RuntimeHealthSnapshot(0, nil, []Diagnostic{d})
			h.RuntimeHealthSnapshot(1, nil, []Diagnostic{d})
			h.RuntimeHealthSnapshot(2, nil, nil) // would have expired if not refreshed at frame 1

			Expect(h.Active()).To(ConsistOf(d))
		})
	})

	Describe("Active", func() {
		It("unions authoring and non-expired runtime diagnostics", func() {
			h := NewHub(nil, 120)
			authoring := diagWithCode(CodeCycleIllegal, "a")
			runtime := diagWithCode(CodeInf, "b")

			h.CompileEnd("c1", false, []Diagnostic{authoring})
			h.RuntimeHealthSnapshot(0, nil, []Diagnostic{runtime})

			Expect(h.Active()).To(ConsistOf(authoring, runtime))
		})
	})

	Describe("listener fan-out", func() {
		It("delivers CompileBegin and CompileEnd to every subscribed listener", func() {
			ctrl := gomock.NewController(GinkgoT())
			defer ctrl.Finish()

			h := NewHub(nil, 120)
			mock := NewMockListener(ctrl)
			h.Subscribe(mock)

			diags := []Diagnostic{diagWithCode(CodeUnresolvedType, "z")}
			gomock.InOrder(
				mock.EXPECT().OnEvent(EventCompileBegin, "c1"),
				mock.EXPECT().OnEvent(EventCompileEnd, CompileEndStatus{CompileID: "c1", Success: true, Diagnostics: diags}),
			)

			h.CompileBegin("c1")
			h.CompileEnd("c1", true, diags)
		})

		It("invokes every subscriber, not just the first", func() {
			ctrl := gomock.NewController(GinkgoT())
			defer ctrl.Finish()

			h := NewHub(nil, 120)
			a := NewMockListener(ctrl)
			b := NewMockListener(ctrl)
			h.Subscribe(a)
			h.Subscribe(b)

			a.EXPECT().OnEvent(EventProgramSwapped, ProgramSwappedInfo{SwapMode: SwapPreserveContinuity})
			b.EXPECT().OnEvent(EventProgramSwapped, ProgramSwappedInfo{SwapMode: SwapPreserveContinuity})

			h.ProgramSwapped(SwapPreserveContinuity)
		})
	})
})
