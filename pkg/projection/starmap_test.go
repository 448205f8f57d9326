package projection_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/glassbox/pkg/embeddings"
	"github.com/papercomputeco/glassbox/pkg/projection"
	testutils "github.com/papercomputeco/glassbox/pkg/utils/test"
)

var _ = Describe("Projector", func() {
	var (
		embedder  *testutils.MockEmbedder
		projector *projection.Projector
		ctx       context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		embedder = testutils.NewMockEmbedder()
		embedder.Embeddings["cats"] = []float32{1, 0, 0, 0}
		embedder.Embeddings["dogs"] = []float32{0, 1, 0, 0}
		embedder.Embeddings["rockets"] = []float32{0, 0, 1, 0}
		embedder.Embeddings["kittens"] = []float32{0.9, 0.1, 0, 0}
		projector = projection.NewProjector(embedder, "cats", "dogs", "rockets")
	})

	It("returns a point for the prompt and every anchor", func() {
		sm, err := projector.Project(ctx, "kittens")
		Expect(err).NotTo(HaveOccurred())
		Expect(sm.Anchors).To(HaveLen(3))
		Expect(sm.Anchors[0].Label).To(Equal("cats"))
		Expect(sm.Anchors[2].Label).To(Equal("rockets"))
		Expect(sm.VarianceExplained[0]).To(BeNumerically(">", 0))
	})

	It("places the prompt nearer its related anchor", func() {
		sm, err := projector.Project(ctx, "kittens")
		Expect(err).NotTo(HaveOccurred())

		dist := func(a, b projection.Point) float64 {
			dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
			return dx*dx + dy*dy + dz*dz
		}
		Expect(dist(sm.PromptPoint, sm.Anchors[0].Point)).To(BeNumerically("<", dist(sm.PromptPoint, sm.Anchors[2].Point)))
	})

	It("embeds anchors only once", func() {
		_, err := projector.Project(ctx, "kittens")
		Expect(err).NotTo(HaveOccurred())
		_, err = projector.Project(ctx, "cats")
		Expect(err).NotTo(HaveOccurred())

		// 3 anchors + 2 prompts
		Expect(embedder.Calls()).To(Equal(5))
	})

	It("fails when an anchor cannot be embedded", func() {
		embedder.FailOn = "dogs"
		_, err := projector.Project(ctx, "kittens")
		Expect(err).To(MatchError(ContainSubstring(`anchor "dogs"`)))
		Expect(err).To(MatchError(embeddings.ErrEmbedding))
	})

	It("fails when the prompt cannot be embedded", func() {
		embedder.FailOn = "kittens"
		_, err := projector.Project(ctx, "kittens")
		Expect(err).To(HaveOccurred())
	})

	It("uses the default anchors when none are given", func() {
		Expect(projection.NewProjector(embedder).Anchors()).To(Equal(projection.DefaultAnchors))
	})
})
