package commands

import (
	"encoding/json"

	"github.com/aceman-ct/aceman/cli/migrate"
	"github.com/aceman-ct/aceman/cli/migrate/source"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("aceman db migrate", func() {
	var p *testProject

	BeforeEach(func() {
		p = newTestProject()
	})

	AfterEach(func() {
		p.remove()
	})

	status := func() *migrate.Status {
		Expect(p.db("migrate", "status", "--output", "json")).To(Succeed())
		var s migrate.Status
		Expect(json.Unmarshal(p.stdout.Bytes(), &s)).To(Succeed())
		return &s
	}

	Context("up", func() {
		It("applies every pending migration", func() {
			Expect(p.db("migrate", "up")).To(Succeed())
			Expect(p.stderr.String()).To(ContainSubstring("migrations applied"))

			s := status()
			Expect(s.Current).To(Equal(source.Version(1602336010)))
			Expect(s.Consistent).To(BeTrue())
			Expect(s.Pending()).To(Equal(0))
		})

		It("stops at the given version", func() {
			Expect(p.db("migrate", "up", "1602335590")).To(Succeed())
			s := status()
			Expect(s.Current).To(Equal(source.Version(1602335590)))
			Expect(s.Pending()).To(Equal(1))
		})

		It("does nothing when the database is current", func() {
			Expect(p.db("migrate", "up")).To(Succeed())
			Expect(p.db("migrate", "up")).To(Succeed())
			Expect(p.stderr.String()).To(ContainSubstring("no migrations to run"))
		})

		It("fails on a version it does not know", func() {
			err := p.db("migrate", "up", "1602335591")
			Expect(err).To(HaveOccurred())
			Expect(err).To(MatchError(source.ErrUnknownVersion))
			Expect(status().Current).To(Equal(source.NilVersion))
		})

		It("rejects a malformed version", func() {
			err := p.db("migrate", "up", "latest")
			Expect(err).To(MatchError(ContainSubstring("invalid target version")))
		})

		It("fails when the database cannot be reached", func() {
			err := p.run("db", "migrate", "up", "--database-url", "sqlite:///nonexistent/dir/aceman.db?mode=ro")
			Expect(err).To(HaveOccurred())
		})
	})

	Context("down", func() {
		BeforeEach(func() {
			Expect(p.db("migrate", "up")).To(Succeed())
		})

		It("rolls back to the given version", func() {
			Expect(p.db("migrate", "down", "1602334616", "--yes")).To(Succeed())
			s := status()
			Expect(s.Current).To(Equal(source.Version(1602334616)))
			Expect(s.Pending()).To(Equal(2))
		})

		It("rolls back everything with none", func() {
			Expect(p.db("migrate", "down", "none", "--yes")).To(Succeed())
			Expect(status().Current).To(Equal(source.NilVersion))
		})

		It("asks for --yes without a terminal", func() {
			err := p.db("migrate", "down", "none")
			Expect(err).To(MatchError(ContainSubstring("--yes")))
			Expect(status().Current).To(Equal(source.Version(1602336010)))
		})
	})

	Context("status", func() {
		It("lists every migration of the binary", func() {
			Expect(p.db("migrate", "up", "1602334616")).To(Succeed())
			Expect(p.db("migrate", "status")).To(Succeed())
			out := p.stdout.String()
			Expect(out).To(ContainSubstring("create_operators"))
			Expect(out).To(ContainSubstring("Not Applied"))
			Expect(out).To(ContainSubstring("current version: 1602334616, pending: 2"))
		})

		It("rejects an unknown output format", func() {
			Expect(p.db("migrate", "status", "--output", "xml")).To(MatchError(ContainSubstring("invalid output format")))
		})

		It("writes yaml", func() {
			Expect(p.db("migrate", "status", "-o", "yaml")).To(Succeed())
			Expect(p.stdout.String()).To(ContainSubstring("current_version: 0"))
		})
	})
})
