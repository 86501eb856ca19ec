package canontype

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Solver", func() {
	var s *Solver

	BeforeEach(func() {
		s = NewSolver()
	})

	Describe("UnifyType", func() {
		It("propagates a concrete payload onto an unresolved var across a chain of unifications", func() {
			v1 := s.NewVar()
			v2 := s.NewVar()

			a := CanonicalType{Extent{Payload: Var[Payload](v1), Cardinality: Inst(Cardinality{Kind: CardOne}), Temporality: Inst(TemporalContinuous), Binding: Inst(BindingLaneLocal)}}
			b := CanonicalType{Extent{Payload: Var[Payload](v2), Cardinality: Inst(Cardinality{Kind: CardOne}), Temporality: Inst(TemporalContinuous), Binding: Inst(BindingLaneLocal)}}
			c := CanonicalType{Extent{Payload: Inst(PayloadColor), Cardinality: Inst(Cardinality{Kind: CardOne}), Temporality: Inst(TemporalContinuous), Binding: Inst(BindingLaneLocal)}}

			s.UnifyType(a, b)
			s.UnifyType(b, c)

			p1, ok1 := s.ResolvePayload(v1)
			p2, ok2 := s.ResolvePayload(v2)
			Expect(ok1).To(BeTrue())
			Expect(ok2).To(BeTrue())
			Expect(p1).To(Equal(PayloadColor))
			Expect(p2).To(Equal(PayloadColor))
			Expect(s.Conflicts()).To(BeEmpty())
		})

		It("is confluent: unifying the same three endpoints in any order resolves to the same payload", func() {
			run := func(order func(a, b, c CanonicalType, slv *Solver)) Payload {
				slv := NewSolver()
				v := slv.NewVar()
				a := CanonicalType{Extent{Payload: Var[Payload](v), Cardinality: Inst(Cardinality{Kind: CardOne}), Temporality: Inst(TemporalStatic), Binding: Inst(BindingLaneLocal)}}
				b := CanonicalType{Extent{Payload: Inst(PayloadFloat), Cardinality: Inst(Cardinality{Kind: CardOne}), Temporality: Inst(TemporalStatic), Binding: Inst(BindingLaneLocal)}}
				c := CanonicalType{Extent{Payload: Inst(PayloadFloat), Cardinality: Inst(Cardinality{Kind: CardOne}), Temporality: Inst(TemporalStatic), Binding: Inst(BindingLaneLocal)}}
				order(a, b, c, slv)
				p, _ := slv.ResolvePayload(v)
				return p
			}

			forward := run(func(a, b, c CanonicalType, slv *Solver) {
				slv.UnifyType(a, b)
				slv.UnifyType(a, c)
			})
			reverse := run(func(a, b, c CanonicalType, slv *Solver) {
				slv.UnifyType(a, c)
				slv.UnifyType(a, b)
			})
			Expect(forward).To(Equal(reverse))
			Expect(forward).To(Equal(PayloadFloat))
		})

		It("records a single payload-axis conflict when two concrete payloads disagree", func() {
			a := CanonicalType{Extent{Payload: Inst(PayloadFloat), Cardinality: Inst(Cardinality{Kind: CardOne}), Temporality: Inst(TemporalStatic), Binding: Inst(BindingLaneLocal)}}
			b := CanonicalType{Extent{Payload: Inst(PayloadColor), Cardinality: Inst(Cardinality{Kind: CardOne}), Temporality: Inst(TemporalStatic), Binding: Inst(BindingLaneLocal)}}

			s.UnifyType(a, b)

			conflicts := s.Conflicts()
			Expect(conflicts).To(HaveLen(1))
			Expect(conflicts[0].Axis).To(Equal("payload"))
			Expect(conflicts[0].Axis).NotTo(BeEmpty())
		})

		It("detects a cardinality conflict between one and many(instanceRef) independently of the payload axis", func() {
			a := CanonicalType{Extent{Payload: Inst(PayloadFloat), Cardinality: Inst(Cardinality{Kind: CardOne}), Temporality: Inst(TemporalStatic), Binding: Inst(BindingLaneLocal)}}
			b := CanonicalType{Extent{Payload: Inst(PayloadFloat), Cardinality: Inst(Cardinality{Kind: CardMany, InstanceRef: "dots"}), Temporality: Inst(TemporalStatic), Binding: Inst(BindingLaneLocal)}}

			s.UnifyType(a, b)

			var axes []string
			for _, c := range s.Conflicts() {
				axes = append(axes, c.Axis)
			}
			Expect(axes).To(ContainElement("cardinality"))
			Expect(axes).NotTo(ContainElement("payload"))
		})
	})

	Describe("ResolveType", func() {
		It("rewrites every resolved var axis to inst", func() {
			vp := s.NewVar()
			vc := s.NewVar()
			unresolved := CanonicalType{Extent{
				Payload:     Var[Payload](vp),
				Cardinality: Var[Cardinality](vc),
				Temporality: Inst(TemporalDiscrete),
				Binding:     Inst(BindingLaneShared),
			}}
			pin := CanonicalType{Extent{
				Payload:     Inst(PayloadVec2),
				Cardinality: Inst(Cardinality{Kind: CardOne}),
				Temporality: Inst(TemporalDiscrete),
				Binding:     Inst(BindingLaneShared),
			}}
			s.UnifyType(unresolved, pin)

			resolved := s.ResolveType(unresolved)

			Expect(resolved.IsFullyConcrete()).To(BeTrue())
			Expect(resolved.Extent.Payload.Value).To(Equal(PayloadVec2))
			Expect(resolved.Extent.Cardinality.Value.Kind).To(Equal(CardOne))
		})

		It("leaves a var axis unresolved when nothing concrete has joined its class", func() {
			v := s.NewVar()
			unresolved := CanonicalType{Extent{
				Payload:     Var[Payload](v),
				Cardinality: Inst(Cardinality{Kind: CardOne}),
				Temporality: Inst(TemporalStatic),
				Binding:     Inst(BindingLaneLocal),
			}}

			resolved := s.ResolveType(unresolved)

			Expect(resolved.IsFullyConcrete()).To(BeFalse())
			Expect(resolved.Extent.Payload.IsVar()).To(BeTrue())
		})
	})
})
