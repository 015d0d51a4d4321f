package crosstalkcmder_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	crosstalkcmder "github.com/crosstalkco/crosstalk/cmd/crosstalk"
)

var _ = Describe("NewCrosstalkCmd", func() {
	It("creates the root command", func() {
		cmd := crosstalkcmder.NewCrosstalkCmd()
		Expect(cmd.Use).To(Equal("crosstalk"))
		Expect(cmd.Short).NotTo(BeEmpty())
	})

	It("registers all subcommands", func() {
		cmd := crosstalkcmder.NewCrosstalkCmd()
		names := make([]string, 0, len(cmd.Commands()))
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("run", "serve", "check", "config", "init", "auth", "version"))
	})

	It("exposes the global flags", func() {
		cmd := crosstalkcmder.NewCrosstalkCmd()
		Expect(cmd.PersistentFlags().Lookup("debug")).NotTo(BeNil())
		Expect(cmd.PersistentFlags().Lookup("config-dir")).NotTo(BeNil())
	})
})
