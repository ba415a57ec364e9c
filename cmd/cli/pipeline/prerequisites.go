package pipeline

import (
	"fmt"
	"strings"
)

// requiredTools are the external binaries the pipeline shells out to. A
// missing or broken tool is fatal before any cluster state is touched.
var requiredTools = []struct {
	name    string
	command []string
	check   func(output string) bool
}{
	{
		name:    "kind",
		command: []string{"kind", "version"},
		check: func(output string) bool {
			return strings.Contains(output, "kind")
		},
	},
	{
		name:    "kubectl",
		command: []string{"kubectl", "version", "--client", "--output=yaml"},
		check: func(output string) bool {
			return strings.Contains(output, "clientVersion")
		},
	},
	{
		name:    "helm",
		command: []string{"helm", "version", "--short"},
		check: func(output string) bool {
			return strings.Contains(output, "v3.")
		},
	},
	{
		name:    "docker",
		command: []string{"docker", "version", "--format", "{{.Client.Version}}"},
		check: func(output string) bool {
			return len(strings.TrimSpace(output)) > 0
		},
	},
}

// CheckPrerequisites verifies that every required tool is installed and
// answering.
func CheckPrerequisites(run Runner) error {
	for _, tool := range requiredTools {
		output, err := run.Run(tool.command[0], tool.command[1:]...)
		if err != nil {
			return fmt.Errorf("%s is not installed or not working properly; please install %s first", tool.name, tool.name)
		}
		if !tool.check(string(output)) {
			return fmt.Errorf("%s installation appears to be invalid, output: %s", tool.name, strings.TrimSpace(string(output)))
		}
	}
	return nil
}

// ToolVersions returns version strings for the required tools, for display.
func ToolVersions(run Runner) map[string]string {
	versions := make(map[string]string)
	for _, tool := range requiredTools {
		output, err := run.Run(tool.command[0], tool.command[1:]...)
		if err != nil {
			versions[tool.name] = "not found"
			continue
		}
		firstLine := strings.SplitN(strings.TrimSpace(string(output)), "\n", 2)[0]
		versions[tool.name] = firstLine
	}
	return versions
}
