package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/kubestage/kubestage/cmd/cli/internal/version"
	"github.com/kubestage/kubestage/cmd/cli/pipeline"
)

var (
	// Color palette
	primaryColor = lipgloss.Color("#00D4AA")
	accentColor  = lipgloss.Color("#F59E0B")
	textColor    = lipgloss.Color("#E5E7EB")
	mutedColor   = lipgloss.Color("#9CA3AF")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	bannerStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true).
			Align(lipgloss.Left).
			Padding(1, 0)

	helpStyle = lipgloss.NewStyle().
			Foreground(textColor)

	commandStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	descriptionStyle = lipgloss.NewStyle().
				Foreground(mutedColor)
)

// ASCII art banner for kubestage
const banner = `
██╗  ██╗██╗   ██╗██████╗ ███████╗███████╗████████╗ █████╗  ██████╗ ███████╗
██║ ██╔╝██║   ██║██╔══██╗██╔════╝██╔════╝╚══██╔══╝██╔══██╗██╔════╝ ██╔════╝
█████╔╝ ██║   ██║██████╔╝█████╗  ███████╗   ██║   ███████║██║  ███╗█████╗
██╔═██╗ ██║   ██║██╔══██╗██╔══╝  ╚════██║   ██║   ██╔══██║██║   ██║██╔══╝
██║  ██╗╚██████╔╝██████╔╝███████╗███████║   ██║   ██║  ██║╚██████╔╝███████╗
╚═╝  ╚═╝ ╚═════╝ ╚═════╝ ╚══════╝╚══════╝   ╚═╝   ╚═╝  ╚═╝ ╚═════╝ ╚══════╝
`

const subtitle = "⚡ Spin up the demo clients stack on a local Kubernetes cluster ⚡"

func printBanner() {
	fmt.Print(bannerStyle.Render(banner))
	fmt.Print(bannerStyle.Render(subtitle))
	fmt.Println()
}

// Styled output functions
func printSuccess(message string) {
	successStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	fmt.Printf("✅ %s\n", successStyle.Render(message))
}

func printError(message string) {
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	fmt.Printf("❌ %s\n", errorStyle.Render(message))
}

func printInfo(message string) {
	infoStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6")).Bold(true)
	fmt.Printf("ℹ️  %s\n", infoStyle.Render(message))
}

func printWarning(message string) {
	warningStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).Bold(true)
	fmt.Printf("⚠️  %s\n", warningStyle.Render(message))
}

func printStep(step int, message string) {
	stepStyle := lipgloss.NewStyle().Foreground(primaryColor).Bold(true)
	fmt.Printf("%s %s\n", stepStyle.Render(fmt.Sprintf("[%d]", step)), helpStyle.Render(message))
}

func printProgress(message string) {
	progressStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#8B5CF6")).Bold(true)
	fmt.Printf("🔄 %s\n", progressStyle.Render(message))
}

func printTable(headers []string, rows [][]string) {
	headerStyle := lipgloss.NewStyle().Foreground(primaryColor).Bold(true)
	cellStyle := lipgloss.NewStyle().Foreground(textColor)

	for i, header := range headers {
		if i > 0 {
			fmt.Print("  ")
		}
		fmt.Printf("%-20s", headerStyle.Render(header))
	}
	fmt.Println()

	for i := range headers {
		if i > 0 {
			fmt.Print("  ")
		}
		fmt.Print(strings.Repeat("─", 20))
	}
	fmt.Println()

	for _, row := range rows {
		for i, cell := range row {
			if i > 0 {
				fmt.Print("  ")
			}
			fmt.Printf("%-20s", cellStyle.Render(cell))
		}
		fmt.Println()
	}
}

func stagePrinters() pipeline.Printers {
	return pipeline.Printers{
		Step:     printStep,
		Progress: printProgress,
		Success:  printSuccess,
		Error:    printError,
		Info:     printInfo,
		Warning:  printWarning,
	}
}

var rootCmd = &cobra.Command{
	Use:   "kubestage",
	Short: "Deploy and verify the demo clients stack on a local cluster",
	Long: `kubestage provisions a local kind cluster, deploys the demo clients
stack (MySQL, the clients API, and an NGINX ingress), runs the database
init and seed jobs, and smoke-tests the deployed endpoints end to end.`,
	Run: func(cmd *cobra.Command, args []string) {
		printBanner()
		_ = cmd.Help()
	},
}

func newDeployCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy [cluster-name]",
		Short: "Provision a kind cluster and deploy the demo stack",
		Long: `Provision a kind cluster (reusing it if it already exists), apply the
stack manifests, wait for the workloads, install ingress, run the database
jobs, and verify the deployed API with a full create-read-delete sequence.

Examples:
  # Deploy with defaults
  kubestage deploy

  # Deploy to a named cluster with two workers
  kubestage deploy staging --workers 2

  # Deploy without the ingress layer
  kubestage deploy --skip-ingress-install`,
		Args: cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			// precedence: flags > environment > config file > defaults
			opts := pipeline.DefaultOptions()
			if configuration, _ := cmd.Flags().GetString("configuration"); configuration != "" {
				if err := pipeline.LoadConfigFromYAML(configuration, &opts); err != nil {
					printError(err.Error())
					os.Exit(1)
				}
			}
			if err := opts.ApplyEnvOverrides(); err != nil {
				printError(err.Error())
				os.Exit(1)
			}

			if len(args) > 0 {
				opts.ClusterName = args[0]
			}
			if cmd.Flags().Changed("namespace") {
				opts.Namespace, _ = cmd.Flags().GetString("namespace")
			}
			if cmd.Flags().Changed("manifest-dir") {
				opts.ManifestDir, _ = cmd.Flags().GetString("manifest-dir")
			}
			if cmd.Flags().Changed("workers") {
				opts.WorkerNodes, _ = cmd.Flags().GetInt("workers")
			}
			if cmd.Flags().Changed("rollout-timeout") {
				opts.RolloutTimeout, _ = cmd.Flags().GetDuration("rollout-timeout")
			}
			if cmd.Flags().Changed("ingress-timeout") {
				opts.IngressTimeout, _ = cmd.Flags().GetDuration("ingress-timeout")
			}
			if cmd.Flags().Changed("job-timeout") {
				opts.JobTimeout, _ = cmd.Flags().GetDuration("job-timeout")
			}
			if skip, _ := cmd.Flags().GetBool("skip-ingress-install"); skip {
				opts.SkipIngress = true
			}

			printBanner()
			fmt.Println(titleStyle.Render("🚀 Deploying the demo clients stack"))
			fmt.Println()
			printInfo(fmt.Sprintf("Cluster name: %s", opts.ClusterName))
			printInfo(fmt.Sprintf("Namespace: %s", opts.Namespace))
			printInfo(fmt.Sprintf("Manifest directory: %s", opts.ManifestDir))
			if opts.SkipIngress {
				printInfo("Ingress installation: SKIPPED")
			}
			fmt.Println()

			if err := pipeline.Deploy(context.Background(), pipeline.NewDeps(), opts, stagePrinters()); err != nil {
				printError(fmt.Sprintf("Deployment failed: %v", err))
				os.Exit(1)
			}

			printSuccess("🎉 Deployment complete!")
			printInfo(fmt.Sprintf("Use 'kubectl --context %s -n %s get all' to inspect the stack",
				pipeline.ContextName(opts.ClusterName), opts.Namespace))
		},
	}

	cmd.Flags().StringP("configuration", "c", "", "Path to a YAML configuration file")
	cmd.Flags().String("namespace", "", "Namespace the stack is deployed into")
	cmd.Flags().String("manifest-dir", "", "Directory containing the stack manifests")
	cmd.Flags().IntP("workers", "w", 1, "Number of worker nodes for a new cluster")
	cmd.Flags().Duration("rollout-timeout", 0, "Timeout for each workload rollout")
	cmd.Flags().Duration("ingress-timeout", 0, "Timeout for ingress controller and webhook readiness")
	cmd.Flags().Duration("job-timeout", 0, "Timeout for each database job")
	cmd.Flags().Bool("skip-ingress-install", false, "Skip installing the ingress layer")
	return cmd
}

func newDestroyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "destroy [cluster-name]",
		Short: "Destroy a kubestage-managed cluster",
		Long:  "Destroy a kubestage-managed kind cluster and clean up its generated configuration files.",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			name := pipeline.DefaultOptions().ClusterName
			if len(args) > 0 {
				name = args[0]
			}
			force, _ := cmd.Flags().GetBool("force")

			printBanner()
			fmt.Println(titleStyle.Render("🗑️  Destroying cluster"))
			fmt.Println()

			if !force {
				var proceed bool
				form := huh.NewForm(
					huh.NewGroup(
						huh.NewConfirm().
							Title(fmt.Sprintf("Destroy cluster '%s'?", name)).
							Description("This permanently deletes the cluster and all its data.").
							Value(&proceed),
					),
				)
				if err := form.Run(); err != nil {
					printError(fmt.Sprintf("Confirmation failed: %v", err))
					os.Exit(1)
				}
				if !proceed {
					printInfo("Cluster destruction cancelled")
					return
				}
			}

			if err := pipeline.Destroy(pipeline.NewExecRunner(), pipeline.DestroyOptions{Name: name}, stagePrinters()); err != nil {
				printError(fmt.Sprintf("Destruction failed: %v", err))
				os.Exit(1)
			}
			printSuccess("🎉 Cluster destruction complete!")
		},
	}

	cmd.Flags().Bool("force", false, "Skip the confirmation prompt")
	return cmd
}

func newClustersCommand() *cobra.Command {
	clustersCmd := &cobra.Command{
		Use:   "clusters",
		Short: "Manage kubestage clusters",
		Long:  "List and inspect kind clusters managed by kubestage",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List kubestage-managed clusters",
		Run: func(cmd *cobra.Command, args []string) {
			infos, err := pipeline.ListClusterInfo(pipeline.NewExecRunner())
			if err != nil {
				printError(fmt.Sprintf("Failed to list clusters: %v", err))
				os.Exit(1)
			}
			if len(infos) == 0 {
				printWarning("No kubestage clusters found")
				printInfo("Use 'kubestage deploy <name>' to create one")
				return
			}

			headers, rows := pipeline.ClusterTable(infos)
			printTable(headers, rows)

			running := 0
			for _, info := range infos {
				if info.Status == "Running" {
					running++
				}
			}
			printSuccess(fmt.Sprintf("Found %d cluster(s) (%d running)", len(infos), running))
		},
	}

	clustersCmd.AddCommand(listCmd)
	return clustersCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			printBanner()
			fmt.Println(titleStyle.Render(fmt.Sprintf("kubestage %s", version.GetVersion())))
			fmt.Println()
			printInfo("Tool versions:")
			for tool, toolVersion := range pipeline.ToolVersions(pipeline.NewExecRunner()) {
				fmt.Printf("  %s  %s\n",
					commandStyle.Render(fmt.Sprintf("%-8s", tool)),
					descriptionStyle.Render(toolVersion))
			}
		},
	}
}

func init() {
	rootCmd.AddCommand(newDeployCommand())
	rootCmd.AddCommand(newDestroyCommand())
	rootCmd.AddCommand(newClustersCommand())
	rootCmd.AddCommand(newVersionCommand())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
