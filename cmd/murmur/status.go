// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Murmur Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	murmurerr "github.com/murmur-dev/murmur/pkg/errors"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show journal status",
		Long:  "Check the running server's status endpoint and display entry and folder counts.",
		RunE:  runStatus,
	}

	cmd.Flags().String("address", "127.0.0.1:8787", "murmur server address")

	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("address")
	out := cmd.OutOrStdout()

	var body struct {
		Entries        int    `json:"entries"`
		Embedded       int    `json:"embedded"`
		ClusterFolders int    `json:"cluster_folders"`
		LastClustered  string `json:"last_clustered"`
	}
	if err := newAPIClient(addr).getJSON("/api/v1/status", &body); err != nil {
		if murmurerr.HasCode(err, murmurerr.CodeCLIServerNotRunning) {
			_, printErr := fmt.Fprintf(out, "Murmur at %s is not running (connection refused)\n", addr)
			return printErr
		}
		return err
	}

	_, err := fmt.Fprintf(out, "Murmur at %s\n  entries: %d (%d embedded)\n  topic folders: %d\n", addr, body.Entries, body.Embedded, body.ClusterFolders)
	if err != nil {
		return err
	}
	if body.LastClustered != "" {
		_, err = fmt.Fprintf(out, "  last clustered: %s\n", body.LastClustered)
	} else {
		_, err = fmt.Fprintln(out, "  last clustered: never")
	}
	return err
}
