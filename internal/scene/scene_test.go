package scene_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/pbdsim/internal/config"
	"github.com/san-kum/pbdsim/internal/pbd"
	"github.com/san-kum/pbdsim/internal/scene"
	"github.com/san-kum/pbdsim/internal/sim"
)

var _ = Describe("Scene", func() {
	Describe("building from a preset", func() {
		It("creates one solver per chain with the original topology", func() {
			s, err := scene.New(config.GetPreset("demo"))
			Expect(err).NotTo(HaveOccurred())
			Expect(s.NumBodies()).To(Equal(3))

			f := s.Capture(0, 0)
			Expect(f.Bodies).To(HaveLen(3))
			Expect(f.Bodies[0].Positions).To(HaveLen(5))
			Expect(f.Bodies[1].Positions).To(HaveLen(2))
			Expect(f.Bodies[2].Positions).To(HaveLen(5))
			Expect(f.Bodies[0].Constraints).To(HaveLen(4))
			Expect(f.Bodies[0].Fixed).To(Equal([]bool{true, false, false, false, false}))
			Expect(f.Bodies[1].Positions[0]).To(Equal(pbd.Vec2{X: 450, Y: 250}))
		})

		It("keeps explicit body constraints in submission order", func() {
			s, err := scene.New(config.GetPreset("shadow"))
			Expect(err).NotTo(HaveOccurred())

			cs := s.Capture(0, 0).Bodies[1].Constraints
			Expect(cs).To(HaveLen(3))
			Expect([]int{cs[0].A, cs[1].A, cs[2].A}).To(Equal([]int{0, 1, 2}))
			Expect(cs[0].RestLength).To(BeNumerically("~", 50, 1e-9))
		})

		It("rejects constraints that reference missing particles", func() {
			cfg := config.GetPreset("single")
			cfg.Bodies = []config.BodyConfig{{
				Name:        "broken",
				Particles:   []config.ParticleConfig{{X: 0, Y: 0, Mass: 1}},
				Constraints: [][2]int{{0, 3}},
			}}

			_, err := scene.New(cfg)
			Expect(err).To(MatchError(pbd.ErrInvalidIndex))
			Expect(err.Error()).To(ContainSubstring("broken"))
		})

		It("rejects an invalid configuration", func() {
			cfg := config.GetPreset("single")
			cfg.Solver.Dt = 0
			_, err := scene.New(cfg)
			Expect(err).To(MatchError(config.ErrInvalidConfig))
		})
	})

	Describe("stepping", func() {
		It("advances parallel solvers exactly like sequential ones", func() {
			par := config.GetPreset("demo")
			par.Parallel = true
			seq := config.GetPreset("demo")
			seq.Parallel = false

			a, err := scene.New(par)
			Expect(err).NotTo(HaveOccurred())
			b, err := scene.New(seq)
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < 120; i++ {
				a.Step()
				b.Step()
			}
			Expect(a.Capture(120, 2)).To(Equal(b.Capture(120, 2)))
		})

		It("never moves pinned anchors", func() {
			s, err := scene.New(config.GetPreset("bridge"))
			Expect(err).NotTo(HaveOccurred())
			start := s.Capture(0, 0).Bodies[0].Positions

			for i := 0; i < 200; i++ {
				s.Step()
			}
			end := s.Capture(200, 0).Bodies[0].Positions
			Expect(end[0]).To(Equal(start[0]))
			Expect(end[len(end)-1]).To(Equal(start[len(start)-1]))
			Expect(end[5].Y).To(BeNumerically(">", start[5].Y))
		})

		It("restores the initial configuration on reset", func() {
			s, err := scene.New(config.GetPreset("single"))
			Expect(err).NotTo(HaveOccurred())
			initial := s.Capture(0, 0)

			for i := 0; i < 30; i++ {
				s.Step()
			}
			Expect(s.Capture(30, 0).Bodies[0].Positions).NotTo(Equal(initial.Bodies[0].Positions))

			Expect(s.Reset()).To(Succeed())
			Expect(s.Capture(0, 0)).To(Equal(initial))
		})

		It("exposes shadows only when enabled", func() {
			s, err := scene.New(config.GetPreset("shadow"))
			Expect(err).NotTo(HaveOccurred())
			s.Step()
			f := s.Capture(1, 0)
			Expect(f.Bodies[0].Shadows).To(HaveLen(5))
			Expect(f.Bodies[0].Shadows[0]).To(Equal(f.Bodies[0].Positions[0]))
			Expect(f.Bodies[0].Shadows[4]).NotTo(Equal(f.Bodies[0].Positions[4]))

			plain, err := scene.New(config.GetPreset("single"))
			Expect(err).NotTo(HaveOccurred())
			Expect(plain.Capture(0, 0).Bodies[0].Shadows).To(BeNil())
		})
	})

	Describe("running through the simulator", func() {
		It("settles the single chain near its rest lengths", func() {
			s, err := scene.New(config.GetPreset("single"))
			Expect(err).NotTo(HaveOccurred())

			res, err := sim.New().Run(context.Background(), s, sim.Config{Frames: 300, Stride: 50, ValidateState: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Errors).To(BeEmpty())
			Expect(res.StepsTaken).To(Equal(300))
			Expect(res.Frames).To(HaveLen(7))

			final, ok := res.Final()
			Expect(ok).To(BeTrue())
			Expect(final.Time).To(BeNumerically("~", 5.0, 1e-9))
			b := final.Bodies[0]
			for i := range b.Constraints {
				Expect(b.ConstraintError(i) / b.Constraints[i].RestLength).To(BeNumerically("~", 0, 1e-2))
			}
		})
	})
})
