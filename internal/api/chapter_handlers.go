package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/studytrackapp/studytrack-server/internal/domain"
	"github.com/studytrackapp/studytrack-server/internal/service"
)

func (s *Server) registerChapterRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listChapters",
		Method:      http.MethodGet,
		Path:        "/api/v1/sections/{sectionId}/chapters",
		Summary:     "List chapters",
		Description: "Returns the chapters of a section",
		Tags:        []string{"Chapters"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListChapters)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createChapter",
		Method:        http.MethodPost,
		Path:          "/api/v1/sections/{sectionId}/chapters",
		Summary:       "Create chapter",
		Description:   "Adds a chapter to a section and grows the section's chapter count",
		Tags:          []string{"Chapters"},
		Security:      []map[string][]string{{"bearer": {}}},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateChapter)

	huma.Register(s.api, huma.Operation{
		OperationID: "getChapter",
		Method:      http.MethodGet,
		Path:        "/api/v1/chapters/{chapterId}",
		Summary:     "Get chapter",
		Tags:        []string{"Chapters"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetChapter)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateChapter",
		Method:      http.MethodPatch,
		Path:        "/api/v1/chapters/{chapterId}",
		Summary:     "Update chapter",
		Tags:        []string{"Chapters"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateChapter)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteChapter",
		Method:      http.MethodDelete,
		Path:        "/api/v1/chapters/{chapterId}",
		Summary:     "Delete chapter",
		Description: "Deletes a chapter with its topics and rolls its counters back out of the section and book",
		Tags:        []string{"Chapters"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteChapter)
}

// CreateChapterInput wraps the create chapter request for Huma.
type CreateChapterInput struct {
	SectionID string `path:"sectionId" doc:"Section ID"`
	Body      CreateSectionRequest
}

// ChapterPathInput identifies a chapter.
type ChapterPathInput struct {
	ChapterID string `path:"chapterId" doc:"Chapter ID"`
}

// UpdateChapterInput wraps the update chapter request for Huma.
type UpdateChapterInput struct {
	ChapterID string `path:"chapterId" doc:"Chapter ID"`
	Body      service.UpdateChapterRequest
}

// ListChaptersResponse contains a section's chapters.
type ListChaptersResponse struct {
	Chapters []*domain.Chapter `json:"chapters" doc:"Chapters ordered by creation"`
}

// ListChaptersOutput wraps the list chapters response for Huma.
type ListChaptersOutput struct {
	Body ListChaptersResponse
}

// ChapterOutput wraps a single chapter for Huma.
type ChapterOutput struct {
	Body *domain.Chapter
}

func (s *Server) handleListChapters(ctx context.Context, input *SectionPathInput) (*ListChaptersOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	chapters, err := s.services.Hierarchy.ListChapters(ctx, userID, input.SectionID)
	if err != nil {
		return nil, err
	}
	return &ListChaptersOutput{Body: ListChaptersResponse{Chapters: chapters}}, nil
}

func (s *Server) handleCreateChapter(ctx context.Context, input *CreateChapterInput) (*ChapterOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	chapter, err := s.services.Hierarchy.CreateChapter(ctx, userID, input.SectionID, service.CreateChapterRequest{
		Title:       input.Body.Title,
		Description: input.Body.Description,
	})
	if err != nil {
		return nil, err
	}
	return &ChapterOutput{Body: chapter}, nil
}

func (s *Server) handleGetChapter(ctx context.Context, input *ChapterPathInput) (*ChapterOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	chapter, err := s.services.Hierarchy.GetChapter(ctx, userID, input.ChapterID)
	if err != nil {
		return nil, err
	}
	return &ChapterOutput{Body: chapter}, nil
}

func (s *Server) handleUpdateChapter(ctx context.Context, input *UpdateChapterInput) (*ChapterOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	chapter, err := s.services.Hierarchy.UpdateChapter(ctx, userID, input.ChapterID, input.Body)
	if err != nil {
		return nil, err
	}
	return &ChapterOutput{Body: chapter}, nil
}

func (s *Server) handleDeleteChapter(ctx context.Context, input *ChapterPathInput) (*struct{}, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Hierarchy.DeleteChapter(ctx, userID, input.ChapterID); err != nil {
		return nil, err
	}
	return nil, nil
}
