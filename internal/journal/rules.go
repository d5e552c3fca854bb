// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Murmur Contributors

package journal

import (
	"context"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/murmur-dev/murmur/internal/store"
	murmurerr "github.com/murmur-dev/murmur/pkg/errors"
)

// ruleFolderDoc is the YAML document shape for rule folder import/export.
type ruleFolderDoc struct {
	Folders []ruleFolderSpec `yaml:"folders"`
}

type ruleFolderSpec struct {
	Name string     `yaml:"name"`
	Rule store.Rule `yaml:"rule"`
}

// ExportRuleFolders writes every rule folder as a YAML document.
func (s *Service) ExportRuleFolders(ctx context.Context, w io.Writer) error {
	folders, err := s.folders.List(ctx, store.FolderKindRule)
	if err != nil {
		return err
	}

	doc := ruleFolderDoc{Folders: make([]ruleFolderSpec, 0, len(folders))}
	for _, folder := range folders {
		if folder.Rule == nil {
			continue
		}
		doc.Folders = append(doc.Folders, ruleFolderSpec{
			Name: folder.Name,
			Rule: *folder.Rule,
		})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return murmurerr.Wrap(err, murmurerr.CodeJournalRuleInvalid, "encoding rule folders")
	}
	return enc.Close()
}

// ImportRuleFolders reads a YAML document of rule folders and creates each
// one. Every rule is validated before any folder is created, so a bad
// document imports nothing.
func (s *Service) ImportRuleFolders(ctx context.Context, r io.Reader) (int, error) {
	var doc ruleFolderDoc
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return 0, murmurerr.Wrap(err, murmurerr.CodeJournalRuleInvalid, "decoding rule folders")
	}

	for _, spec := range doc.Folders {
		if spec.Name == "" {
			return 0, murmurerr.New(murmurerr.CodeJournalRuleInvalid, "rule folder name is required")
		}
		if err := validateRule(spec.Rule); err != nil {
			return 0, murmurerr.Wrapf(err, murmurerr.CodeJournalRuleInvalid, "folder %q", spec.Name)
		}
	}

	created := 0
	for _, spec := range doc.Folders {
		if _, err := s.CreateRuleFolder(ctx, spec.Name, spec.Rule); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
