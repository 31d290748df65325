// Command cli is an operator-facing client for the control plane,
// exposing health/run/submit subcommands over the planner's HTTP API.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/iosl-sustainability/carbon-scheduler/internal/config"
	"github.com/iosl-sustainability/carbon-scheduler/utils"
)

var plannerHost string

func main() {
	root := &cobra.Command{Use: "carbon-scheduler-cli"}
	root.PersistentFlags().StringVar(&plannerHost, "host", defaultHost(), "planner control-plane base URL")

	root.AddCommand(&cobra.Command{
		Use:   "health",
		Short: "Check the planner's /health endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return getAndPrint(plannerHost + "/health")
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Trigger a full planning cycle over the registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return postAndPrint(plannerHost+"/run", nil)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "submit [descriptor.json]",
		Short: "Submit a single function descriptor for ad-hoc planning",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return postAndPrint(plannerHost+"/submit", body)
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultHost() string {
	config.ReadConfiguration("")
	host := config.GetString(config.PLANNER_PORT, "8080")
	return "http://127.0.0.1:" + host
}

func getAndPrint(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	utils.PrintJsonResponse(resp.Body)
	return nil
}

func postAndPrint(url string, body []byte) error {
	if body == nil {
		body = []byte("{}")
	}
	resp, err := utils.PostJson(url, body)
	if err != nil && resp == nil {
		return err
	}
	utils.PrintJsonResponse(resp.Body)
	return nil
}
