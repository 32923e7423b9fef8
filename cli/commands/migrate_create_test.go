package commands

import (
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/aceman-ct/aceman/cli/migrate/source"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("aceman db migrate create", func() {
	var (
		p   *testProject
		dir string
	)

	BeforeEach(func() {
		p = newTestProject()
		dir = filepath.Join(p.dir, "migrations")
	})

	AfterEach(func() {
		p.remove()
	})

	It("writes up and down files", func() {
		Expect(p.db("migrate", "create", "create_operator_tags", "--version", "1602337000",
			"--up-sql", "CREATE TABLE operator_tags (id INTEGER PRIMARY KEY);",
			"--down-sql", "DROP TABLE operator_tags;")).To(Succeed())

		registry, err := source.Load(os.DirFS(dir), ".")
		Expect(err).ShouldNot(HaveOccurred())
		d, err := registry.Lookup(1602337000)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(d.Name).To(Equal("create_operator_tags"))
		Expect(d.Up).To(ContainSubstring("CREATE TABLE operator_tags"))
		Expect(d.Down).To(Equal("DROP TABLE operator_tags;"))
	})

	It("reads the up sql from a file", func() {
		sqlFile := filepath.Join(p.dir, "tags.sql")
		Expect(ioutil.WriteFile(sqlFile, []byte("CREATE TABLE tags (id INTEGER);"), 0644)).To(Succeed())
		Expect(p.db("migrate", "create", "tags", "--version", "1602337000", "--sql-from-file", sqlFile)).To(Succeed())

		b, err := ioutil.ReadFile(filepath.Join(dir, "1602337000_tags.up.sql"))
		Expect(err).ShouldNot(HaveOccurred())
		Expect(string(b)).To(Equal("CREATE TABLE tags (id INTEGER);"))
	})

	It("uses the current time as the default version", func() {
		Expect(p.db("migrate", "create", "tags")).To(Succeed())
		registry, err := source.Load(os.DirFS(dir), ".")
		Expect(err).ShouldNot(HaveOccurred())
		Expect(registry.Len()).To(Equal(1))
		Expect(registry.Last()).To(BeNumerically(">", source.Version(1602337000)))
	})

	It("refuses a version that already exists", func() {
		Expect(p.db("migrate", "create", "tags", "--version", "1602337000")).To(Succeed())
		err := p.db("migrate", "create", "other", "--version", "1602337000")
		Expect(err).To(MatchError(source.ErrDuplicateVersion))
	})

	It("refuses both --up-sql and --sql-from-file", func() {
		err := p.db("migrate", "create", "tags", "--up-sql", "SELECT 1;", "--sql-from-file", "x.sql")
		Expect(err).To(MatchError(ContainSubstring("only one of")))
	})
})
