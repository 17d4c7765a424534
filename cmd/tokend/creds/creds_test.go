package credscmder

import (
	"bytes"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tokend/pkg/credentials"
)

var _ = Describe("Creds Command", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "creds-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("NewCredsCmd", func() {
		It("creates a command with expected properties", func() {
			cmd := NewCredsCmd()
			Expect(cmd.Use).To(Equal("creds [key]"))
			Expect(cmd.Short).NotTo(BeEmpty())
		})

		It("has --list flag", func() {
			cmd := NewCredsCmd()
			Expect(cmd.Flags().Lookup("list")).NotTo(BeNil())
		})

		It("has --remove flag", func() {
			cmd := NewCredsCmd()
			Expect(cmd.Flags().Lookup("remove")).NotTo(BeNil())
		})

		It("has --uid flag", func() {
			cmd := NewCredsCmd()
			Expect(cmd.Flags().Lookup("uid")).NotTo(BeNil())
		})
	})

	Describe("--list flag", func() {
		It("works when no credentials are stored", func() {
			cmd := NewCredsCmd()
			out := &bytes.Buffer{}
			cmd.SetOut(out)
			cmd.PersistentFlags().String("config-dir", "", "Override path to .tokend/ config directory")
			cmd.SetArgs([]string{"--list", "--config-dir", tmpDir})

			err := cmd.Execute()
			Expect(err).NotTo(HaveOccurred())
			Expect(out.String()).To(ContainSubstring("No stored credentials"))
		})

		It("lists stored keys with their credential counts", func() {
			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.Add("ALPHA", credentials.Credential{UID: "1001", Password: "pw"})).To(Succeed())
			Expect(mgr.Add("ALPHA", credentials.Credential{UID: "1002", Password: "pw"})).To(Succeed())

			cmd := NewCredsCmd()
			out := &bytes.Buffer{}
			cmd.SetOut(out)
			cmd.PersistentFlags().String("config-dir", "", "Override path to .tokend/ config directory")
			cmd.SetArgs([]string{"--list", "--config-dir", tmpDir})

			err = cmd.Execute()
			Expect(err).NotTo(HaveOccurred())
			Expect(out.String()).To(ContainSubstring("ALPHA (2 credentials)"))
		})
	})

	Describe("--remove flag", func() {
		It("removes a stored credential", func() {
			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.Add("ALPHA", credentials.Credential{UID: "1001", Password: "pw"})).To(Succeed())

			cmd := NewCredsCmd()
			out := &bytes.Buffer{}
			cmd.SetOut(out)
			cmd.PersistentFlags().String("config-dir", "", "Override path to .tokend/ config directory")
			cmd.SetArgs([]string{"ALPHA", "--remove", "1001", "--config-dir", tmpDir})

			err = cmd.Execute()
			Expect(err).NotTo(HaveOccurred())

			creds, err := mgr.Load("ALPHA")
			Expect(err).NotTo(HaveOccurred())
			Expect(creds).To(BeEmpty())
		})
	})

	Describe("argument validation", func() {
		It("returns an error when no key is given", func() {
			cmd := NewCredsCmd()
			cmd.PersistentFlags().String("config-dir", "", "Override path to .tokend/ config directory")
			cmd.SetArgs([]string{"--config-dir", tmpDir})

			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("key argument required"))
		})

		It("returns an error when neither --uid nor --remove is given", func() {
			cmd := NewCredsCmd()
			cmd.PersistentFlags().String("config-dir", "", "Override path to .tokend/ config directory")
			cmd.SetArgs([]string{"ALPHA", "--config-dir", tmpDir})

			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("--uid or --remove"))
		})
	})

	Describe("--uid behavior", func() {
		It("stores a credential with the piped password", func() {
			cmd := NewCredsCmd()
			cmd.PersistentFlags().String("config-dir", "", "Override path to .tokend/ config directory")

			originalStdin := os.Stdin
			reader, writer, err := os.Pipe()
			Expect(err).NotTo(HaveOccurred())
			_, err = writer.WriteString("pw-piped\n")
			Expect(err).NotTo(HaveOccurred())
			Expect(writer.Close()).To(Succeed())
			os.Stdin = reader
			defer func() {
				os.Stdin = originalStdin
				_ = reader.Close()
			}()

			cmd.SetArgs([]string{"alpha", "--uid", "1001", "--config-dir", tmpDir})
			err = cmd.Execute()
			Expect(err).NotTo(HaveOccurred())

			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			creds, err := mgr.Load("ALPHA")
			Expect(err).NotTo(HaveOccurred())
			Expect(creds).To(Equal([]credentials.Credential{{UID: "1001", Password: "pw-piped"}}))
		})
	})
})
