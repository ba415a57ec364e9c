package e2e

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kubestage/kubestage/test/utils"
)

const e2eClusterName = "e2e"

var _ = Describe("Demo stack deployment", Ordered, func() {
	var binPath string

	BeforeAll(func() {
		binPath = os.Getenv("KUBESTAGE_BIN")
		if binPath == "" {
			binPath = "bin/kubestage"
		}
		if _, err := os.Stat(binPath); err != nil {
			Skip(fmt.Sprintf("kubestage binary not found at %s, run 'make build' first", binPath))
		}
	})

	AfterAll(func() {
		cmd := exec.Command(binPath, "destroy", e2eClusterName, "--force")
		_, _ = utils.Run(cmd)
	})

	It("should deploy the full stack and verify the API end to end", func() {
		cmd := exec.Command(binPath, "deploy", e2eClusterName)
		output, err := utils.Run(cmd)
		Expect(err).NotTo(HaveOccurred(), "deploy failed:\n%s", output)
		Expect(output).To(ContainSubstring("End-to-end verification passed"))
	})

	It("should leave both workloads fully rolled out", func() {
		contextName := "kind-kubestage-" + e2eClusterName
		for _, deployment := range []string{"mysql", "clients-api"} {
			cmd := exec.Command("kubectl", "--context", contextName,
				"-n", "clients-demo", "rollout", "status",
				"deployment/"+deployment, "--timeout=60s")
			output, err := utils.Run(cmd)
			Expect(err).NotTo(HaveOccurred(), "rollout status failed:\n%s", output)
		}
	})

	It("should list the cluster as managed", func() {
		cmd := exec.Command(binPath, "clusters", "list")
		output, err := utils.Run(cmd)
		Expect(err).NotTo(HaveOccurred())
		Expect(output).To(ContainSubstring(e2eClusterName))
	})

	It("should leave no port-forward processes behind", func() {
		cmd := exec.Command("pgrep", "-f", "kubectl port-forward.*clients-demo")
		output, _ := utils.Run(cmd)
		Expect(strings.TrimSpace(output)).To(BeEmpty(), "stale port-forward found: %s", output)
	})

	It("should be idempotent on a second deploy", func() {
		cmd := exec.Command(binPath, "deploy", e2eClusterName)
		output, err := utils.Run(cmd)
		Expect(err).NotTo(HaveOccurred(), "second deploy failed:\n%s", output)
		Expect(output).To(ContainSubstring("already exists"))
	})
})
