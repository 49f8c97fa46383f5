package dimacs_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/satx/dimacs"
	"github.com/sarchlab/satx/lit"
)

var _ = Describe("Parse", func() {
	It("parses the header and clauses, skipping comments", func() {
		src := "c a comment\np cnf 3 2\n1 -2 0\n2 3 0\n"
		p, err := dimacs.Parse(strings.NewReader(src), dimacs.ParseOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.NumVars).To(Equal(3))
		Expect(p.Clauses).To(Equal([][]lit.Lit{{1, -2}, {2, 3}}))
	})

	It("removes duplicate literals within a clause", func() {
		src := "p cnf 2 1\n1 1 -2 0\n"
		p, err := dimacs.Parse(strings.NewReader(src), dimacs.ParseOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Clauses).To(Equal([][]lit.Lit{{1, -2}}))
	})

	It("accepts a clause not terminated before EOF", func() {
		src := "p cnf 1 1\n1"
		p, err := dimacs.Parse(strings.NewReader(src), dimacs.ParseOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Clauses).To(Equal([][]lit.Lit{{1}}))
	})

	It("rejects a malformed problem header", func() {
		_, err := dimacs.Parse(strings.NewReader("p wat 1 1\n"), dimacs.ParseOptions{})
		Expect(err).To(HaveOccurred())
	})

	It("rejects a clause appearing before the header", func() {
		_, err := dimacs.Parse(strings.NewReader("1 2 0\np cnf 2 1\n"), dimacs.ParseOptions{})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("ParseDecisionSequence", func() {
	It("parses one literal per line, skipping comments", func() {
		src := "c forced decisions\n1\n-2\n3\n"
		seq, err := dimacs.ParseDecisionSequence(strings.NewReader(src))
		Expect(err).NotTo(HaveOccurred())
		Expect(seq.Literals).To(Equal([]lit.Lit{1, -2, 3}))
	})
})
