package commands

import (
	"bytes"
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/aceman-ct/aceman/cli"
	"github.com/aceman-ct/aceman/cli/migrate/source"
	"github.com/aceman-ct/aceman/cli/version"
	"github.com/sirupsen/logrus"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func TestCommands(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "commands testsuite")
}

var _ = BeforeSuite(func() {
	dir, err := filepath.Abs(filepath.Join("testdata", "migrations"))
	Expect(err).ShouldNot(HaveOccurred())
	migrationsRegistry = func() (*source.Registry, error) {
		return source.Load(os.DirFS(dir), ".")
	}
})

// testProject is a project directory with its own sqlite database.
type testProject struct {
	dir    string
	dbURL  string
	stdout *bytes.Buffer
	stderr *bytes.Buffer

	// cliVersion overrides the build version when set.
	cliVersion string
}

func newTestProject() *testProject {
	dir, err := ioutil.TempDir("", "aceman-test-")
	Expect(err).ShouldNot(HaveOccurred())
	return &testProject{
		dir:   dir,
		dbURL: "file:" + filepath.Join(dir, "aceman.db") + "?_pragma=busy_timeout(5000)",
	}
}

func (p *testProject) remove() {
	Expect(os.RemoveAll(p.dir)).To(Succeed())
}

// run executes aceman with args in the project and returns the error of the
// command. Output of the last run is kept in p.stdout and p.stderr.
func (p *testProject) run(args ...string) error {
	p.stdout, p.stderr = new(bytes.Buffer), new(bytes.Buffer)
	logger := logrus.New()
	logger.Out = GinkgoWriter

	ec := cli.NewExecutionContext()
	ec.Logger = logger
	ec.Stdout = p.stdout
	ec.Stderr = p.stderr
	ec.GlobalConfigDir = filepath.Join(p.dir, ".aceman")
	if p.cliVersion != "" {
		ec.Version = version.NewCLIVersion(p.cliVersion)
	}

	cmd := NewRootCmd(ec)
	cmd.SetArgs(append(args, "--project", p.dir))
	cmd.SetOut(GinkgoWriter)
	cmd.SetErr(GinkgoWriter)
	return cmd.ExecuteContext(context.Background())
}

func (p *testProject) db(args ...string) error {
	return p.run(append([]string{"db"}, append(args, "--database-url", p.dbURL)...)...)
}
