package util_test

import (
	"code.cloudfoundry.org/cdnbroker/util"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Random", func() {
	var random *util.Random

	BeforeEach(func() {
		random = util.NewRandom(42)
	})

	It("numbers guids per prefix", func() {
		Ω(random.NewGuid("cdn")).Should(Equal("cdn-1"))
		Ω(random.NewGuid("cdn")).Should(Equal("cdn-2"))
		Ω(random.NewGuid("loc")).Should(Equal("loc-1"))

		random.ResetGuids()
		Ω(random.NewGuid("cdn")).Should(Equal("cdn-1"))
	})

	It("stays within bounds", func() {
		for i := 0; i < 100; i++ {
			Ω(random.IntIn(3, 5)).Should(BeNumerically(">=", 3))
			Ω(random.IntIn(3, 5)).Should(BeNumerically("<=", 5))
			Ω(random.FloatIn(-1.5, 2)).Should(BeNumerically(">=", -1.5))
			Ω(random.FloatIn(-1.5, 2)).Should(BeNumerically("<", 2))
		}
	})

	It("repeats itself for the same seed", func() {
		other := util.NewRandom(42)
		for i := 0; i < 10; i++ {
			Ω(random.FloatIn(0, 1)).Should(Equal(other.FloatIn(0, 1)))
		}
	})

	It("picks distinct indices", func() {
		picked := random.Pick(3, 10)
		Ω(picked).Should(HaveLen(3))
		seen := map[int]bool{}
		for _, i := range picked {
			Ω(i).Should(BeNumerically("<", 10))
			Ω(seen[i]).Should(BeFalse())
			seen[i] = true
		}

		Ω(random.Pick(5, 2)).Should(ConsistOf(0, 1))
	})
})
