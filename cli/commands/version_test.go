package commands

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("aceman version", func() {
	It("prints the cli and schema versions", func() {
		p := newTestProject()
		defer p.remove()

		Expect(p.run("version")).To(Succeed())
		Expect(p.stdout.String()).To(ContainSubstring("aceman version: dev"))
		Expect(p.stdout.String()).To(ContainSubstring("schema version: 1602336010"))
		Expect(p.stdout.String()).To(ContainSubstring("this is not a stable release"))
	})

	It("does not flag a tagged release", func() {
		p := newTestProject()
		defer p.remove()
		p.cliVersion = "v1.3.0"

		Expect(p.run("version")).To(Succeed())
		Expect(p.stdout.String()).To(ContainSubstring("aceman version: v1.3.0"))
		Expect(p.stdout.String()).NotTo(ContainSubstring("stable release"))
	})
})
