// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Murmur Contributors

package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

// snippetLength caps how much transcript the result listing shows per hit.
const snippetLength = 80

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search journal entries",
		Long:  "Search entries by keyword, semantic similarity, or both (hybrid, the default).",
		Args:  cobra.ExactArgs(1),
		RunE:  runSearch,
	}

	cmd.Flags().String("address", "127.0.0.1:8787", "murmur server address")
	cmd.Flags().String("mode", "hybrid", "search mode: hybrid, keyword, or semantic")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("address")
	mode, _ := cmd.Flags().GetString("mode")
	out := cmd.OutOrStdout()

	var body struct {
		Results []struct {
			Entry struct {
				ID         string `json:"id"`
				Name       string `json:"name"`
				Transcript string `json:"transcript"`
			} `json:"entry"`
			Score float64 `json:"score"`
		} `json:"results"`
	}

	client := newAPIClient(addr)
	path := "/api/v1/search?q=" + url.QueryEscape(args[0]) + "&mode=" + url.QueryEscape(mode)
	if err := client.getJSON(path, &body); err != nil {
		return err
	}

	if len(body.Results) == 0 {
		_, err := fmt.Fprintln(out, "No matches.")
		return err
	}

	for _, r := range body.Results {
		if _, err := fmt.Fprintf(out, "%.2f  %s  %s\n", r.Score, r.Entry.Name, snippet(r.Entry.Transcript)); err != nil {
			return err
		}
	}
	return nil
}

func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= snippetLength {
		return text
	}
	return text[:snippetLength] + "…"
}
