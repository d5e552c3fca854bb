// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Murmur Contributors

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	murmurerr "github.com/murmur-dev/murmur/pkg/errors"
)

func newAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [transcript]",
		Short: "Add a journal entry",
		Long:  "Save a journal entry from the argument, --file, or stdin. The running server enriches it in the background.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runAdd,
	}

	cmd.Flags().String("address", "127.0.0.1:8787", "murmur server address")
	cmd.Flags().String("name", "", "entry display name (defaults to the creation time)")
	cmd.Flags().String("mode", "", "journaling mode (freeform, gratitude, dream, ...)")
	cmd.Flags().StringP("file", "f", "", "read the transcript from a file ('-' for stdin)")

	return cmd
}

func runAdd(cmd *cobra.Command, args []string) error {
	transcript, err := readTranscript(cmd, args)
	if err != nil {
		return err
	}

	addr, _ := cmd.Flags().GetString("address")
	name, _ := cmd.Flags().GetString("name")
	mode, _ := cmd.Flags().GetString("mode")

	var entry struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	client := newAPIClient(addr)
	err = client.postJSON("/api/v1/entries", map[string]string{
		"name":       name,
		"transcript": transcript,
		"mode":       mode,
	}, &entry)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Saved %q (%s)\n", entry.Name, entry.ID)
	return err
}

func readTranscript(cmd *cobra.Command, args []string) (string, error) {
	file, _ := cmd.Flags().GetString("file")

	var transcript string
	switch {
	case len(args) == 1 && file != "":
		return "", murmurerr.New(murmurerr.CodeCLIInputInvalid, "pass the transcript as an argument or via --file, not both")
	case len(args) == 1:
		transcript = args[0]
	case file == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", murmurerr.Wrap(err, murmurerr.CodeCLIInputInvalid, "reading stdin")
		}
		transcript = string(data)
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", murmurerr.Wrapf(err, murmurerr.CodeCLIInputInvalid, "reading %s", file)
		}
		transcript = string(data)
	default:
		return "", murmurerr.New(murmurerr.CodeCLIInputInvalid, "no transcript given: pass it as an argument or via --file")
	}

	if strings.TrimSpace(transcript) == "" {
		return "", murmurerr.New(murmurerr.CodeCLIInputInvalid, "transcript is empty")
	}
	return transcript, nil
}
