// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Murmur Contributors

package main

import (
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	murmurerr "github.com/murmur-dev/murmur/pkg/errors"
)

func newFoldersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folders",
		Short: "Inspect and manage folders",
	}

	cmd.PersistentFlags().String("address", "127.0.0.1:8787", "murmur server address")

	cmd.AddCommand(
		newFoldersListCmd(),
		newFoldersEntriesCmd(),
		newFoldersRenameCmd(),
		newFoldersDeleteCmd(),
		newFoldersExportCmd(),
		newFoldersImportCmd(),
	)

	return cmd
}

func newFoldersListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List folders",
		RunE:  runFoldersList,
	}
	cmd.Flags().String("kind", "", "filter by kind: cluster, rule, or manual")
	return cmd
}

func runFoldersList(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("address")
	kind, _ := cmd.Flags().GetString("kind")
	out := cmd.OutOrStdout()

	path := "/api/v1/folders"
	if kind != "" {
		path += "?kind=" + url.QueryEscape(kind)
	}

	var body struct {
		Folders []struct {
			ID   string `json:"id"`
			Kind string `json:"kind"`
			Name string `json:"name"`
		} `json:"folders"`
	}
	if err := newAPIClient(addr).getJSON(path, &body); err != nil {
		return err
	}

	if len(body.Folders) == 0 {
		_, err := fmt.Fprintln(out, "No folders.")
		return err
	}
	for _, f := range body.Folders {
		if _, err := fmt.Fprintf(out, "%-8s %s  %s\n", f.Kind, f.ID, f.Name); err != nil {
			return err
		}
	}
	return nil
}

func newFoldersEntriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "entries <folder-id>",
		Short: "List a folder's entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("address")
			out := cmd.OutOrStdout()

			var body struct {
				Entries []struct {
					ID         string `json:"id"`
					Name       string `json:"name"`
					Transcript string `json:"transcript"`
				} `json:"entries"`
			}
			if err := newAPIClient(addr).getJSON("/api/v1/folders/"+url.PathEscape(args[0])+"/entries", &body); err != nil {
				return err
			}

			if len(body.Entries) == 0 {
				_, err := fmt.Fprintln(out, "Folder is empty.")
				return err
			}
			for _, e := range body.Entries {
				if _, err := fmt.Fprintf(out, "%s  %s  %s\n", e.ID, e.Name, snippet(e.Transcript)); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newFoldersRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <folder-id> <name>",
		Short: "Rename a folder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("address")
			err := newAPIClient(addr).send("PATCH", "/api/v1/folders/"+url.PathEscape(args[0]), map[string]string{"name": args[1]})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %q\n", args[0], args[1])
			return err
		},
	}
}

func newFoldersDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <folder-id>",
		Short: "Delete a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("address")
			if err := newAPIClient(addr).send("DELETE", "/api/v1/folders/"+url.PathEscape(args[0]), nil); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return err
		},
	}
}

func newFoldersExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export rule folders to YAML",
		Long:  "Write every rule folder's name and rule to YAML, suitable for re-import on another journal. Reads the stores directly; the server does not need to be running.",
		RunE:  runFoldersExport,
	}
	cmd.Flags().StringP("output", "o", "", "write to a file instead of stdout")
	return cmd
}

func runFoldersExport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	stores, svc, err := wireStores(cfg, newLogger(cmd))
	if err != nil {
		return err
	}
	defer func() { _ = stores.Close() }()

	out := cmd.OutOrStdout()
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return murmurerr.Wrapf(err, murmurerr.CodeCLIInputInvalid, "creating %s", path)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	return svc.ExportRuleFolders(cmd.Context(), out)
}

func newFoldersImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import rule folders from YAML",
		Long:  "Create rule folders from a YAML export. The whole file is validated before any folder is created. Reads the stores directly; the server does not need to be running.",
		Args:  cobra.ExactArgs(1),
		RunE:  runFoldersImport,
	}
}

func runFoldersImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	stores, svc, err := wireStores(cfg, newLogger(cmd))
	if err != nil {
		return err
	}
	defer func() { _ = stores.Close() }()

	f, err := os.Open(args[0])
	if err != nil {
		return murmurerr.Wrapf(err, murmurerr.CodeCLIInputInvalid, "opening %s", args[0])
	}
	defer func() { _ = f.Close() }()

	created, err := svc.ImportRuleFolders(cmd.Context(), f)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d rule folder(s)\n", created)
	return err
}
