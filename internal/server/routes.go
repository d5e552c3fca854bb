// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Murmur Contributors

package server

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/murmur-dev/murmur/internal/cluster"
	"github.com/murmur-dev/murmur/internal/journal"
	"github.com/murmur-dev/murmur/internal/search"
	"github.com/murmur-dev/murmur/internal/store"
	murmurerr "github.com/murmur-dev/murmur/pkg/errors"
)

// Services bundles the service dependencies the routes call into.
type Services struct {
	Journal  *journal.Service
	Search   *search.Engine
	Cluster  *cluster.Manager
	Entries  store.EntryStore
	Folders  store.FolderStore
	Settings store.SettingsStore
}

// RegisterServices sets the service dependencies and registers REST routes.
func (s *Server) RegisterServices(svc *Services) {
	s.services = svc
	s.registerRoutes()
}

func (s *Server) registerRoutes() {
	// Entry endpoints
	huma.Register(s.api, huma.Operation{
		OperationID: "create-entry",
		Method:      http.MethodPost,
		Path:        "/api/v1/entries",
		Summary:     "Create a journal entry",
		Tags:        []string{"entries"},
	}, s.handleCreateEntry)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-entries",
		Method:      http.MethodGet,
		Path:        "/api/v1/entries",
		Summary:     "List journal entries",
		Tags:        []string{"entries"},
	}, s.handleListEntries)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-entry",
		Method:      http.MethodGet,
		Path:        "/api/v1/entries/{id}",
		Summary:     "Get a journal entry",
		Tags:        []string{"entries"},
	}, s.handleGetEntry)

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-entry",
		Method:      http.MethodDelete,
		Path:        "/api/v1/entries/{id}",
		Summary:     "Delete a journal entry",
		Tags:        []string{"entries"},
	}, s.handleDeleteEntry)

	huma.Register(s.api, huma.Operation{
		OperationID: "related-entries",
		Method:      http.MethodGet,
		Path:        "/api/v1/entries/{id}/related",
		Summary:     "List entries nearest in embedding space",
		Tags:        []string{"entries"},
	}, s.handleRelatedEntries)

	// Search endpoint
	huma.Register(s.api, huma.Operation{
		OperationID: "search",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search entries",
		Tags:        []string{"search"},
	}, s.handleSearch)

	// Folder endpoints
	huma.Register(s.api, huma.Operation{
		OperationID: "list-folders",
		Method:      http.MethodGet,
		Path:        "/api/v1/folders",
		Summary:     "List folders",
		Tags:        []string{"folders"},
	}, s.handleListFolders)

	huma.Register(s.api, huma.Operation{
		OperationID: "create-rule-folder",
		Method:      http.MethodPost,
		Path:        "/api/v1/folders/rule",
		Summary:     "Create a rule folder",
		Tags:        []string{"folders"},
	}, s.handleCreateRuleFolder)

	huma.Register(s.api, huma.Operation{
		OperationID: "create-manual-folder",
		Method:      http.MethodPost,
		Path:        "/api/v1/folders/manual",
		Summary:     "Create a manual folder",
		Tags:        []string{"folders"},
	}, s.handleCreateManualFolder)

	huma.Register(s.api, huma.Operation{
		OperationID: "folder-entries",
		Method:      http.MethodGet,
		Path:        "/api/v1/folders/{id}/entries",
		Summary:     "List a folder's entries",
		Tags:        []string{"folders"},
	}, s.handleFolderEntries)

	huma.Register(s.api, huma.Operation{
		OperationID: "rename-folder",
		Method:      http.MethodPatch,
		Path:        "/api/v1/folders/{id}",
		Summary:     "Rename a folder",
		Tags:        []string{"folders"},
	}, s.handleRenameFolder)

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-folder",
		Method:      http.MethodDelete,
		Path:        "/api/v1/folders/{id}",
		Summary:     "Delete a folder",
		Tags:        []string{"folders"},
	}, s.handleDeleteFolder)

	// Clustering endpoints
	huma.Register(s.api, huma.Operation{
		OperationID: "recluster",
		Method:      http.MethodPost,
		Path:        "/api/v1/recluster",
		Summary:     "Regenerate topic folders",
		Tags:        []string{"clustering"},
	}, s.handleRecluster)

	// Status endpoint
	huma.Register(s.api, huma.Operation{
		OperationID: "status",
		Method:      http.MethodGet,
		Path:        "/api/v1/status",
		Summary:     "Journal status",
		Tags:        []string{"system"},
	}, s.handleStatus)
}

// --- DTOs ---

// EntryDTO is the wire shape of an entry. The raw embedding is omitted.
type EntryDTO struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Transcript string    `json:"transcript"`
	Summary    string    `json:"summary,omitempty"`
	Mode       string    `json:"mode,omitempty"`
	Topics     []string  `json:"topics,omitempty"`
	Embedded   bool      `json:"embedded"`
	ClusterID  *int      `json:"cluster_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toEntryDTO(e *store.Entry) EntryDTO {
	return EntryDTO{
		ID:         e.ID,
		Name:       e.Name,
		Transcript: e.Transcript,
		Summary:    e.Summary,
		Mode:       e.Mode,
		Topics:     e.Topics,
		Embedded:   e.Embedded(),
		ClusterID:  e.ClusterID,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}
}

func toEntryDTOs(entries []*store.Entry) []EntryDTO {
	out := make([]EntryDTO, len(entries))
	for i, e := range entries {
		out[i] = toEntryDTO(e)
	}
	return out
}

// FolderDTO is the wire shape of a folder.
type FolderDTO struct {
	ID           string      `json:"id"`
	Kind         string      `json:"kind"`
	Name         string      `json:"name"`
	ClusterIndex *int        `json:"cluster_index,omitempty"`
	Rule         *store.Rule `json:"rule,omitempty"`
	MemberIDs    []string    `json:"member_ids,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

func toFolderDTO(f *store.Folder) FolderDTO {
	dto := FolderDTO{
		ID:        f.ID,
		Kind:      string(f.Kind),
		Name:      f.Name,
		Rule:      f.Rule,
		MemberIDs: f.MemberIDs,
		CreatedAt: f.CreatedAt,
	}
	if f.Kind == store.FolderKindCluster {
		idx := f.ClusterIndex
		dto.ClusterIndex = &idx
	}
	return dto
}

// --- Handlers ---

type createEntryInput struct {
	Body struct {
		Name       string `json:"name,omitempty" doc:"Display name; defaults to the creation time"`
		Transcript string `json:"transcript" minLength:"1" doc:"Entry text"`
		Mode       string `json:"mode,omitempty" doc:"Journaling mode (freeform, gratitude, dream, ...)"`
	}
}

type entryOutput struct {
	Body EntryDTO
}

func (s *Server) handleCreateEntry(ctx context.Context, input *createEntryInput) (*entryOutput, error) {
	entry, err := s.services.Journal.CreateEntry(ctx, input.Body.Name, input.Body.Transcript, input.Body.Mode)
	if err != nil {
		return nil, apiError(err)
	}
	return &entryOutput{Body: toEntryDTO(entry)}, nil
}

type listEntriesInput struct {
	Limit  int `query:"limit" default:"0" minimum:"0"`
	Offset int `query:"offset" default:"0" minimum:"0"`
}

type listEntriesOutput struct {
	Body struct {
		Entries []EntryDTO `json:"entries"`
	}
}

func (s *Server) handleListEntries(ctx context.Context, input *listEntriesInput) (*listEntriesOutput, error) {
	entries, err := s.services.Journal.ListEntries(ctx, store.EntryFilter{Limit: input.Limit, Offset: input.Offset})
	if err != nil {
		return nil, apiError(err)
	}
	out := &listEntriesOutput{}
	out.Body.Entries = toEntryDTOs(entries)
	return out, nil
}

type entryIDInput struct {
	ID string `path:"id"`
}

func (s *Server) handleGetEntry(ctx context.Context, input *entryIDInput) (*entryOutput, error) {
	entry, err := s.services.Journal.GetEntry(ctx, input.ID)
	if err != nil {
		return nil, apiError(err)
	}
	return &entryOutput{Body: toEntryDTO(entry)}, nil
}

func (s *Server) handleDeleteEntry(ctx context.Context, input *entryIDInput) (*struct{}, error) {
	if err := s.services.Journal.DeleteEntry(ctx, input.ID); err != nil {
		return nil, apiError(err)
	}
	return &struct{}{}, nil
}

type relatedInput struct {
	ID    string `path:"id"`
	Limit int    `query:"limit" default:"5" minimum:"1" maximum:"50"`
}

func (s *Server) handleRelatedEntries(ctx context.Context, input *relatedInput) (*listEntriesOutput, error) {
	entries, err := s.services.Journal.Related(ctx, input.ID, input.Limit)
	if err != nil {
		return nil, apiError(err)
	}
	out := &listEntriesOutput{}
	out.Body.Entries = toEntryDTOs(entries)
	return out, nil
}

type searchInput struct {
	Query string `query:"q" doc:"Search query"`
	Mode  string `query:"mode" default:"hybrid" enum:"hybrid,keyword,semantic"`
}

type searchResultDTO struct {
	Entry EntryDTO `json:"entry"`
	Score float64  `json:"score"`
}

type searchOutput struct {
	Body struct {
		Results []searchResultDTO `json:"results"`
	}
}

func (s *Server) handleSearch(ctx context.Context, input *searchInput) (*searchOutput, error) {
	results, err := s.services.Search.Search(ctx, input.Query, search.Mode(input.Mode))
	if err != nil {
		return nil, apiError(err)
	}
	out := &searchOutput{}
	out.Body.Results = make([]searchResultDTO, len(results))
	for i, r := range results {
		out.Body.Results[i] = searchResultDTO{Entry: toEntryDTO(r.Entry), Score: r.Score}
	}
	return out, nil
}

type listFoldersInput struct {
	Kind string `query:"kind" doc:"Optional kind filter: cluster, rule, or manual"`
}

type listFoldersOutput struct {
	Body struct {
		Folders []FolderDTO `json:"folders"`
	}
}

func (s *Server) handleListFolders(ctx context.Context, input *listFoldersInput) (*listFoldersOutput, error) {
	folders, err := s.services.Journal.ListFolders(ctx, store.FolderKind(input.Kind))
	if err != nil {
		return nil, apiError(err)
	}
	out := &listFoldersOutput{}
	out.Body.Folders = make([]FolderDTO, len(folders))
	for i, f := range folders {
		out.Body.Folders[i] = toFolderDTO(f)
	}
	return out, nil
}

type createRuleFolderInput struct {
	Body struct {
		Name string     `json:"name" minLength:"1"`
		Rule store.Rule `json:"rule"`
	}
}

type folderOutput struct {
	Body FolderDTO
}

func (s *Server) handleCreateRuleFolder(ctx context.Context, input *createRuleFolderInput) (*folderOutput, error) {
	folder, err := s.services.Journal.CreateRuleFolder(ctx, input.Body.Name, input.Body.Rule)
	if err != nil {
		return nil, apiError(err)
	}
	return &folderOutput{Body: toFolderDTO(folder)}, nil
}

type createManualFolderInput struct {
	Body struct {
		Name      string   `json:"name" minLength:"1"`
		MemberIDs []string `json:"member_ids"`
	}
}

func (s *Server) handleCreateManualFolder(ctx context.Context, input *createManualFolderInput) (*folderOutput, error) {
	folder, err := s.services.Journal.CreateManualFolder(ctx, input.Body.Name, input.Body.MemberIDs)
	if err != nil {
		return nil, apiError(err)
	}
	return &folderOutput{Body: toFolderDTO(folder)}, nil
}

type folderIDInput struct {
	ID string `path:"id"`
}

func (s *Server) handleFolderEntries(ctx context.Context, input *folderIDInput) (*listEntriesOutput, error) {
	entries, err := s.services.Journal.FolderEntries(ctx, input.ID)
	if err != nil {
		return nil, apiError(err)
	}
	out := &listEntriesOutput{}
	out.Body.Entries = toEntryDTOs(entries)
	return out, nil
}

type renameFolderInput struct {
	ID   string `path:"id"`
	Body struct {
		Name string `json:"name" minLength:"1"`
	}
}

func (s *Server) handleRenameFolder(ctx context.Context, input *renameFolderInput) (*struct{}, error) {
	if err := s.services.Journal.RenameFolder(ctx, input.ID, input.Body.Name); err != nil {
		return nil, apiError(err)
	}
	return &struct{}{}, nil
}

func (s *Server) handleDeleteFolder(ctx context.Context, input *folderIDInput) (*struct{}, error) {
	if err := s.services.Journal.DeleteFolder(ctx, input.ID); err != nil {
		return nil, apiError(err)
	}
	return &struct{}{}, nil
}

type reclusterOutput struct {
	Body struct {
		Folders []FolderDTO `json:"folders"`
	}
}

func (s *Server) handleRecluster(ctx context.Context, _ *struct{}) (*reclusterOutput, error) {
	if err := s.services.Cluster.Regenerate(ctx); err != nil {
		return nil, apiError(err)
	}
	folders, err := s.services.Journal.ListFolders(ctx, store.FolderKindCluster)
	if err != nil {
		return nil, apiError(err)
	}
	out := &reclusterOutput{}
	out.Body.Folders = make([]FolderDTO, len(folders))
	for i, f := range folders {
		out.Body.Folders[i] = toFolderDTO(f)
	}
	return out, nil
}

type statusOutput struct {
	Body struct {
		Entries        int    `json:"entries"`
		Embedded       int    `json:"embedded"`
		ClusterFolders int    `json:"cluster_folders"`
		LastClustered  string `json:"last_clustered,omitempty"`
	}
}

func (s *Server) handleStatus(ctx context.Context, _ *struct{}) (*statusOutput, error) {
	entries, err := s.services.Entries.List(ctx, store.EntryFilter{})
	if err != nil {
		return nil, apiError(err)
	}
	embedded, err := s.services.Entries.CountEmbedded(ctx)
	if err != nil {
		return nil, apiError(err)
	}
	folders, err := s.services.Folders.List(ctx, store.FolderKindCluster)
	if err != nil {
		return nil, apiError(err)
	}

	out := &statusOutput{}
	out.Body.Entries = len(entries)
	out.Body.Embedded = embedded
	out.Body.ClusterFolders = len(folders)

	if last, err := s.services.Settings.Get(ctx, store.SettingLastClusteringDate); err == nil {
		out.Body.LastClustered = last
	}
	return out, nil
}

// apiError maps coded errors onto huma status errors.
func apiError(err error) error {
	return huma.NewError(murmurerr.HTTPStatus(err), err.Error())
}
