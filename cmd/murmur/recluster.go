// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Murmur Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	murmurerr "github.com/murmur-dev/murmur/pkg/errors"
)

func newReclusterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recluster",
		Short: "Regenerate topic folders now",
		Long:  "Ask the running server to re-run clustering over all embedded entries and rebuild topic folders.",
		RunE:  runRecluster,
	}

	cmd.Flags().String("address", "127.0.0.1:8787", "murmur server address")

	return cmd
}

func runRecluster(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("address")
	out := cmd.OutOrStdout()

	var body struct {
		Folders []struct {
			Name string `json:"name"`
		} `json:"folders"`
	}
	err := newAPIClient(addr).postJSON("/api/v1/recluster", nil, &body)
	if err != nil {
		if murmurerr.HasCode(err, murmurerr.CodeClusterRegenerateInFlight) {
			_, printErr := fmt.Fprintln(out, "A clustering run is already in progress.")
			return printErr
		}
		return err
	}

	if len(body.Folders) == 0 {
		_, err := fmt.Fprintln(out, "Not enough embedded entries to cluster yet.")
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Rebuilt %d topic folder(s):\n", len(body.Folders))
	if err != nil {
		return err
	}
	for _, f := range body.Folders {
		if _, err := fmt.Fprintf(out, "  %s\n", f.Name); err != nil {
			return err
		}
	}
	return nil
}
