package runcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	runcmder "github.com/crosstalkco/crosstalk/cmd/crosstalk/run"
)

// newTestCmd builds the run command with the root's persistent flags
// registered locally so it can execute standalone.
func newTestCmd() *cobra.Command {
	cmd := runcmder.NewRunCmd()
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .crosstalk/ config directory")
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	return cmd
}

var _ = Describe("Run Command", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "run-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("NewRunCmd", func() {
		It("creates a command with expected properties", func() {
			cmd := runcmder.NewRunCmd()
			Expect(cmd.Use).To(Equal("run"))
			Expect(cmd.Short).NotTo(BeEmpty())
		})

		It("registers conversation flags with config defaults", func() {
			cmd := runcmder.NewRunCmd()

			topic := cmd.Flags().Lookup("topic")
			Expect(topic).NotTo(BeNil())
			Expect(topic.Shorthand).To(Equal("t"))
			Expect(topic.DefValue).To(Equal("The impact of artificial intelligence on society"))

			maxTurns := cmd.Flags().Lookup("max-turns")
			Expect(maxTurns).NotTo(BeNil())
			Expect(maxTurns.DefValue).To(Equal("10"))

			modelA := cmd.Flags().Lookup("model-a")
			Expect(modelA).NotTo(BeNil())
			Expect(modelA.DefValue).To(Equal("gpt-4.1-mini"))

			modelB := cmd.Flags().Lookup("model-b")
			Expect(modelB).NotTo(BeNil())
			Expect(modelB.DefValue).To(Equal("gpt-4.1-nano"))
		})

		It("registers export flags", func() {
			cmd := runcmder.NewRunCmd()

			exportFlag := cmd.Flags().Lookup("export")
			Expect(exportFlag).NotTo(BeNil())
			Expect(exportFlag.DefValue).To(Equal(""))

			out := cmd.Flags().Lookup("out")
			Expect(out).NotTo(BeNil())
			Expect(out.DefValue).To(Equal("."))

			Expect(cmd.Flags().Lookup("same-model")).NotTo(BeNil())
		})
	})

	Describe("export format validation", func() {
		It("rejects unknown formats before doing any work", func() {
			cmd := newTestCmd()
			cmd.SetArgs([]string{"--export", "xml", "--config-dir", tmpDir})

			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring(`invalid export format "xml"`))
		})
	})

	Describe("config validation", func() {
		It("reports config problems instead of starting", func() {
			configTOML := `version = 0

[conversation]
max_turns = 0
`
			err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(configTOML), 0o644)
			Expect(err).NotTo(HaveOccurred())

			cmd := newTestCmd()
			cmd.SetArgs([]string{"--config-dir", tmpDir})

			err = cmd.Execute()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("configuration has 1 problem(s)"))
		})
	})

	Describe("credential resolution", func() {
		var savedKey string
		var hadKey bool

		BeforeEach(func() {
			savedKey, hadKey = os.LookupEnv("OPENAI_API_KEY")
			os.Unsetenv("OPENAI_API_KEY")
		})

		AfterEach(func() {
			if hadKey {
				os.Setenv("OPENAI_API_KEY", savedKey)
			}
		})

		It("explains how to supply a missing API key", func() {
			cmd := newTestCmd()
			cmd.SetArgs([]string{"--config-dir", tmpDir})

			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("no API key for model A (openai)"))
			Expect(err.Error()).To(ContainSubstring("crosstalk auth openai"))
			Expect(err.Error()).To(ContainSubstring("OPENAI_API_KEY"))
		})
	})
})
