package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "studyai: %v\n", err)
		os.Exit(1)
	}
}

type cli struct {
	composeFile string
}

func newRootCommand() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:          "studyai",
		Short:        "StudyAI development CLI",
		Long:         "Drives the local StudyAI stack: the Postgres/Redis/MinIO compose services, the API and worker binaries, tests, and a connectivity check against a running API.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&c.composeFile, "compose-file", "f", "docker-compose.yml", "Compose file for stack commands")
	root.AddCommand(
		c.stackCmd(),
		c.testCmd(),
		c.runCmd(),
		c.selfTestCmd(),
	)
	return root
}

// stackCmd groups the docker compose lifecycle under one parent so `studyai
// stack up` reads like the operation it performs.
func (c *cli) stackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stack",
		Short: "Manage the docker compose stack",
	}

	var noCache bool
	build := &cobra.Command{
		Use:   "build [service...]",
		Short: "Build service images",
		RunE: func(cmd *cobra.Command, args []string) error {
			extra := args
			if noCache {
				extra = append([]string{"--no-cache"}, extra...)
			}
			return c.compose(cmd.Context(), "build", extra...)
		},
	}
	build.Flags().BoolVar(&noCache, "no-cache", false, "Disable the Docker build cache")

	var detach, skipBuild bool
	up := &cobra.Command{
		Use:   "up [service...]",
		Short: "Start the stack",
		RunE: func(cmd *cobra.Command, args []string) error {
			var extra []string
			if !skipBuild {
				extra = append(extra, "--build")
			}
			if detach {
				extra = append(extra, "-d")
			}
			return c.compose(cmd.Context(), "up", append(extra, args...)...)
		},
	}
	up.Flags().BoolVarP(&detach, "detached", "d", true, "Detach from the compose output")
	up.Flags().BoolVar(&skipBuild, "skip-build", false, "Start without rebuilding images")

	var removeVolumes bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Stop the stack",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if removeVolumes {
				return c.compose(cmd.Context(), "down", "-v")
			}
			return c.compose(cmd.Context(), "down")
		},
	}
	down.Flags().BoolVarP(&removeVolumes, "volumes", "v", false, "Also remove volumes")

	var follow bool
	logs := &cobra.Command{
		Use:   "logs [service...]",
		Short: "Show service logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			var extra []string
			if follow {
				extra = append(extra, "-f")
			}
			return c.compose(cmd.Context(), "logs", append(extra, args...)...)
		},
	}
	logs.Flags().BoolVarP(&follow, "follow", "f", false, "Stream logs continuously")

	cmd.AddCommand(build, up, down, logs)
	return cmd
}

func (c *cli) testCmd() *cobra.Command {
	var race, cover bool
	cmd := &cobra.Command{
		Use:   "test [packages]",
		Short: "Run Go tests (defaults to ./...)",
		RunE: func(cmd *cobra.Command, args []string) error {
			goArgs := []string{"test"}
			if race {
				goArgs = append(goArgs, "-race")
			}
			if cover {
				goArgs = append(goArgs, "-cover")
			}
			if len(args) == 0 {
				args = []string{"./..."}
			}
			return run(cmd.Context(), "go", append(goArgs, args...)...)
		},
	}
	cmd.Flags().BoolVar(&race, "race", false, "Enable the race detector")
	cmd.Flags().BoolVar(&cover, "cover", false, "Collect coverage data")
	return cmd
}

func (c *cli) runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a binary directly with go run",
	}
	for _, svc := range []struct{ name, path string }{
		{"server", "./cmd/server"},
		{"worker", "./cmd/worker"},
	} {
		path := svc.path
		cmd.AddCommand(&cobra.Command{
			Use:   svc.name,
			Short: fmt.Sprintf("go run %s", path),
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd.Context(), "go", append([]string{"run", path}, args...)...)
			},
		})
	}
	return cmd
}

// selfTestCmd hits a running API's diagnostics endpoint and prints the
// per-service connection report.
func (c *cli) selfTestCmd() *cobra.Command {
	var baseURL string
	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Probe a running API's external dependencies",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, baseURL+"/api/selftest", nil)
			if err != nil {
				return err
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return fmt.Errorf("reach api: %w", err)
			}
			defer resp.Body.Close()

			var payload struct {
				Results []struct {
					Service string `json:"service"`
					Status  string `json:"status"`
					Message string `json:"message"`
				} `json:"results"`
				AllReady bool `json:"allReady"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
			for _, res := range payload.Results {
				fmt.Printf("%-20s %-10s %s\n", res.Service, res.Status, res.Message)
			}
			if !payload.AllReady {
				return fmt.Errorf("one or more services need attention")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the running API")
	return cmd
}

func (c *cli) compose(ctx context.Context, verb string, extra ...string) error {
	args := append([]string{"compose", "-f", c.composeFile, verb}, extra...)
	return run(ctx, "docker", args...)
}

func run(ctx context.Context, name string, args ...string) error {
	execCmd := exec.CommandContext(ctx, name, args...)
	execCmd.Stdout = os.Stdout
	execCmd.Stderr = os.Stderr
	execCmd.Stdin = os.Stdin
	return execCmd.Run()
}
