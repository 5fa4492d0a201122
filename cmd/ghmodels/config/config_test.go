package configcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/ghmodels/cmd/ghmodels/config"
)

func newConfigCmd(out *bytes.Buffer, args ...string) *cobra.Command {
	cmd := configcmder.NewConfigCmd()
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.PersistentFlags().String("config-dir", "", "Override path to .ghmodels/ config directory")
	cmd.SetArgs(args)
	return cmd
}

var _ = Describe("NewConfigCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := configcmder.NewConfigCmd()
		Expect(cmd.Use).To(Equal("config"))
	})

	It("has set, get, and list subcommands", func() {
		cmd := configcmder.NewConfigCmd()
		cmds := cmd.Commands()
		subcommands := make([]string, 0, len(cmds))
		for _, sub := range cmds {
			subcommands = append(subcommands, sub.Name())
		}
		Expect(subcommands).To(ContainElements("set", "get", "list"))
	})
})

var _ = Describe("Config command execution", func() {
	var (
		tmpDir string
		out    *bytes.Buffer
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		out = &bytes.Buffer{}
	})

	Describe("set subcommand", func() {
		It("sets a config value successfully", func() {
			cmd := newConfigCmd(out, "set", "client.model", "openai/gpt-4o-mini", "--config-dir", tmpDir)
			Expect(cmd.Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("Set"))

			data, err := os.ReadFile(filepath.Join(tmpDir, "config.toml"))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`model = "openai/gpt-4o-mini"`))
		})

		It("rejects unknown keys", func() {
			cmd := newConfigCmd(out, "set", "proxy.provider", "x", "--config-dir", tmpDir)
			Expect(cmd.Execute()).To(MatchError(ContainSubstring("unknown config key")))
		})

		It("rejects invalid values without writing the file", func() {
			cmd := newConfigCmd(out, "set", "client.temperature", "9", "--config-dir", tmpDir)
			Expect(cmd.Execute()).To(HaveOccurred())

			_, err := os.Stat(filepath.Join(tmpDir, "config.toml"))
			Expect(os.IsNotExist(err)).To(BeTrue())
		})

		It("requires exactly two arguments", func() {
			cmd := newConfigCmd(out, "set", "client.model", "--config-dir", tmpDir)
			Expect(cmd.Execute()).To(HaveOccurred())
		})
	})

	Describe("get subcommand", func() {
		It("gets a previously set value", func() {
			Expect(newConfigCmd(&bytes.Buffer{}, "set", "retry.max_retries", "2", "--config-dir", tmpDir).Execute()).To(Succeed())

			cmd := newConfigCmd(out, "get", "retry.max_retries", "--config-dir", tmpDir)
			Expect(cmd.Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("2"))
		})

		It("reports unset keys", func() {
			cmd := newConfigCmd(out, "get", "client.token_env", "--config-dir", tmpDir)
			Expect(cmd.Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("<not set>"))
		})

		It("rejects unknown keys", func() {
			cmd := newConfigCmd(out, "get", "nope", "--config-dir", tmpDir)
			Expect(cmd.Execute()).To(HaveOccurred())
		})
	})

	Describe("list subcommand", func() {
		It("lists every key with defaults", func() {
			cmd := newConfigCmd(out, "list", "--config-dir", tmpDir)
			Expect(cmd.Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring(`client.model`))
			Expect(out.String()).To(ContainSubstring(`"openai/gpt-4o"`))
			Expect(out.String()).To(ContainSubstring(`events.queue_size`))
		})

		It("resolves environment overrides with --effective", func() {
			GinkgoT().Setenv("GHMODELS_CLIENT_MODEL", "openai/o1")

			cmd := newConfigCmd(out, "list", "--effective", "--config-dir", tmpDir)
			Expect(cmd.Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring(`"openai/o1"`))
		})
	})

	Describe("shell completion", func() {
		It("completes config keys", func() {
			cmd := configcmder.NewConfigCmd()
			get, _, err := cmd.Find([]string{"get"})
			Expect(err).NotTo(HaveOccurred())

			completions, directive := get.ValidArgsFunction(get, []string{}, "")
			Expect(completions).To(ContainElement("client.endpoint"))
			Expect(directive).To(Equal(cobra.ShellCompDirectiveNoFileComp))
		})
	})
})
