package pipeline

import (
	"fmt"
	"sort"
	"strings"
)

// ClusterInfo is a display summary for one managed cluster.
type ClusterInfo struct {
	Name    string
	Context string
	Status  string
	Nodes   int
}

// ListClusterInfo returns the managed clusters with node counts and a rough
// status. A cluster whose API server does not answer shows as Stopped
// rather than failing the listing.
func ListClusterInfo(run Runner) ([]ClusterInfo, error) {
	names, err := ListManagedClusters(run)
	if err != nil {
		return nil, err
	}

	infos := make([]ClusterInfo, 0, len(names))
	for _, fullName := range names {
		info := ClusterInfo{
			Name:    UserClusterName(fullName),
			Context: "kind-" + fullName,
			Status:  "Stopped",
		}

		output, err := run.Run("kubectl", "get", "nodes",
			"--context", info.Context, "--no-headers")
		if err == nil {
			lines := nonEmptyLines(string(output))
			info.Nodes = len(lines)
			info.Status = "Running"
			for _, line := range lines {
				if !strings.Contains(line, " Ready") && !strings.Contains(line, "\tReady") {
					info.Status = "NotReady"
					break
				}
			}
		}

		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// ClusterTable renders the listing as table headers and rows for display.
func ClusterTable(infos []ClusterInfo) ([]string, [][]string) {
	headers := []string{"NAME", "STATUS", "NODES", "CONTEXT"}
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, []string{
			info.Name,
			info.Status,
			fmt.Sprintf("%d", info.Nodes),
			info.Context,
		})
	}
	return headers, rows
}

func nonEmptyLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
