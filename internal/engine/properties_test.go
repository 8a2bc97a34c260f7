package engine_test

import (
	"math"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/raddecay/internal/engine"
	"github.com/san-kum/raddecay/internal/inventory"
	"github.com/san-kum/raddecay/internal/nucdata"
)

const day = 86400.0

var _ = Describe("Engine", func() {
	var (
		data *nucdata.Table
		eng  *engine.Engine
	)

	BeforeEach(func() {
		data = nucdata.Sample()
		var err error
		eng, err = engine.New(data)
		Expect(err).NotTo(HaveOccurred())
	})

	newInv := func(c map[nucdata.ID]float64) *inventory.Inventory {
		inv, err := eng.NewInventory(c)
		Expect(err).NotTo(HaveOccurred())
		return inv
	}

	It("returns an identical inventory at t = 0", func() {
		inv := newInv(map[nucdata.ID]float64{"Rn-222": 10, "Cs-137": 1e-40, "Pb-206": 3})
		out, err := inv.Decay(0)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Contents()).To(Equal(inv.Contents()))
	})

	DescribeTable("leaves stable nuclides unchanged",
		func(t float64) {
			out, err := eng.Decay(map[nucdata.ID]float64{"Pb-206": 5}, t)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal(map[nucdata.ID]float64{"Pb-206": 5}))
		},
		Entry("one second", 1.0),
		Entry("one year", 365*day),
		Entry("far future", 1e20),
	)

	It("halves the parent after one half-life and conserves mass", func() {
		rn, err := data.Lookup("Rn-222")
		Expect(err).NotTo(HaveOccurred())

		out, err := eng.Decay(map[nucdata.ID]float64{"Rn-222": 1}, rn.HalfLife())
		Expect(err).NotTo(HaveOccurred())
		Expect(out["Rn-222"]).To(BeNumerically("~", 0.5, 1e-12))

		total := 0.0
		for _, q := range out {
			total += q
		}
		Expect(total).To(BeNumerically("~", 1, 1e-12))
	})

	It("is linear over merge", func() {
		a := newInv(map[nucdata.ID]float64{"Rn-222": 10, "K-40": 2})
		b := newInv(map[nucdata.ID]float64{"Rn-222": 3, "Sr-90": 7})
		const t = 5 * day

		merged, err := a.Merge(b)
		Expect(err).NotTo(HaveOccurred())
		whole, err := merged.Decay(t)
		Expect(err).NotTo(HaveOccurred())

		da, err := a.Decay(t)
		Expect(err).NotTo(HaveOccurred())
		db, err := b.Decay(t)
		Expect(err).NotTo(HaveOccurred())
		parts, err := da.Merge(db)
		Expect(err).NotTo(HaveOccurred())

		union, err := whole.Merge(parts)
		Expect(err).NotTo(HaveOccurred())
		for _, id := range union.Nuclides() {
			w, _ := whole.Quantity(id)
			p, _ := parts.Quantity(id)
			Expect(math.Abs(w-p)).To(BeNumerically("<=", 1e-12*math.Max(w, p)+inventory.DefaultPruneBelow), string(id))
		}
	})

	It("refuses to merge inventories from another dataset", func() {
		other, err := nucdata.NewTable("other", nucdata.NewStable("Pb-206"))
		Expect(err).NotTo(HaveOccurred())
		otherEng, err := engine.New(other)
		Expect(err).NotTo(HaveOccurred())

		a := newInv(map[nucdata.ID]float64{"Pb-206": 1})
		b, err := otherEng.NewInventory(map[nucdata.ID]float64{"Pb-206": 1})
		Expect(err).NotTo(HaveOccurred())

		_, err = a.Merge(b)
		Expect(err).To(MatchError(inventory.ErrDatasetMismatch))
	})

	It("gives the same result from concurrent callers", func() {
		contents := map[nucdata.ID]float64{"Rn-222": 10, "Cs-137": 4, "K-40": 1}
		want, err := eng.Decay(contents, 3*day)
		Expect(err).NotTo(HaveOccurred())

		fresh, err := engine.New(data, engine.WithConfig(engine.Config{Workers: 8}))
		Expect(err).NotTo(HaveOccurred())

		var wg sync.WaitGroup
		results := make([]map[nucdata.ID]float64, 16)
		errs := make([]error, len(results))
		for i := range results {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				results[i], errs[i] = fresh.Decay(contents, 3*day)
			}()
		}
		wg.Wait()

		for i := range results {
			Expect(errs[i]).NotTo(HaveOccurred())
			Expect(results[i]).To(Equal(want))
		}
	})
})
