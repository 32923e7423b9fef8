package commands

import (
	"encoding/json"
	"path/filepath"

	"github.com/aceman-ct/aceman/cli/internal/store"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("aceman sync and list", func() {
	var (
		p       *testProject
		logList string
	)

	BeforeEach(func() {
		p = newTestProject()
		var err error
		logList, err = filepath.Abs(filepath.Join("..", "internal", "ctlog", "testdata", "log_list.json"))
		Expect(err).ShouldNot(HaveOccurred())
	})

	AfterEach(func() {
		p.remove()
	})

	catalog := func(args ...string) error {
		return p.run(append(args, "--database-url", p.dbURL)...)
	}

	It("refuses to touch a database that is not migrated", func() {
		err := catalog("sync", "--log-list", logList)
		Expect(err).To(MatchError(errSchemaNotCurrent))

		Expect(p.db("migrate", "up", "1602335590")).To(Succeed())
		Expect(catalog("list")).To(MatchError(errSchemaNotCurrent))
	})

	It("requires a log list", func() {
		Expect(p.db("migrate", "up")).To(Succeed())
		Expect(catalog("sync")).To(MatchError(ContainSubstring("log-list")))
	})

	Context("on a migrated database", func() {
		BeforeEach(func() {
			Expect(p.db("migrate", "up")).To(Succeed())
			Expect(catalog("sync", "--log-list", logList)).To(Succeed())
			Expect(p.stderr.String()).To(ContainSubstring("synced 3 logs"))
		})

		It("lists the synced logs", func() {
			Expect(catalog("list", "-o", "json")).To(Succeed())
			var entries []store.LogEntry
			Expect(json.Unmarshal(p.stdout.Bytes(), &entries)).To(Succeed())
			Expect(entries).To(HaveLen(3))
			Expect(entries[0].Operator).To(Equal("Google"))
			Expect(entries[2].Operator).To(Equal("Let's Encrypt"))
		})

		It("limits the listing", func() {
			Expect(catalog("list", "-n", "1", "-o", "yaml")).To(Succeed())
			Expect(p.stdout.String()).To(ContainSubstring("operator: Google"))
			Expect(p.stdout.String()).NotTo(ContainSubstring("Let's Encrypt"))
		})

		It("renders a table", func() {
			Expect(catalog("list")).To(Succeed())
			Expect(p.stdout.String()).To(ContainSubstring("OPERATOR"))
			Expect(p.stdout.String()).To(ContainSubstring("Testflume2021"))
		})

		It("is idempotent", func() {
			Expect(catalog("sync", "--log-list", logList)).To(Succeed())
			Expect(p.stderr.String()).To(ContainSubstring(`"logs":0`))
		})
	})
})
