package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/studytrackapp/studytrack-server/internal/domain"
	"github.com/studytrackapp/studytrack-server/internal/service"
)

func (s *Server) registerSectionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listSections",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{bookId}/sections",
		Summary:     "List sections",
		Description: "Returns the sections of a book",
		Tags:        []string{"Sections"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListSections)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createSection",
		Method:        http.MethodPost,
		Path:          "/api/v1/books/{bookId}/sections",
		Summary:       "Create section",
		Description:   "Adds a section to a book",
		Tags:          []string{"Sections"},
		Security:      []map[string][]string{{"bearer": {}}},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateSection)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSection",
		Method:      http.MethodGet,
		Path:        "/api/v1/sections/{sectionId}",
		Summary:     "Get section",
		Tags:        []string{"Sections"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetSection)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateSection",
		Method:      http.MethodPatch,
		Path:        "/api/v1/sections/{sectionId}",
		Summary:     "Update section",
		Tags:        []string{"Sections"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateSection)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteSection",
		Method:      http.MethodDelete,
		Path:        "/api/v1/sections/{sectionId}",
		Summary:     "Delete section",
		Description: "Deletes a section with its chapters and topics and updates the book counters",
		Tags:        []string{"Sections"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteSection)
}

// === DTOs ===

// CreateSectionRequest is the request body for creating a section or chapter.
type CreateSectionRequest struct {
	Title       string `json:"title" doc:"Title"`
	Description string `json:"description,omitempty" doc:"Free-form description"`
}

// CreateSectionInput wraps the create section request for Huma.
type CreateSectionInput struct {
	BookID string `path:"bookId" doc:"Book ID"`
	Body   CreateSectionRequest
}

// SectionPathInput identifies a section.
type SectionPathInput struct {
	SectionID string `path:"sectionId" doc:"Section ID"`
}

// UpdateSectionInput wraps the update section request for Huma.
type UpdateSectionInput struct {
	SectionID string `path:"sectionId" doc:"Section ID"`
	Body      service.UpdateSectionRequest
}

// ListSectionsResponse contains a book's sections.
type ListSectionsResponse struct {
	Sections []*domain.Section `json:"sections" doc:"Sections ordered by creation"`
}

// ListSectionsOutput wraps the list sections response for Huma.
type ListSectionsOutput struct {
	Body ListSectionsResponse
}

// SectionOutput wraps a single section for Huma.
type SectionOutput struct {
	Body *domain.Section
}

// === Handlers ===

func (s *Server) handleListSections(ctx context.Context, input *BookPathInput) (*ListSectionsOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	sections, err := s.services.Hierarchy.ListSections(ctx, userID, input.BookID)
	if err != nil {
		return nil, err
	}
	return &ListSectionsOutput{Body: ListSectionsResponse{Sections: sections}}, nil
}

func (s *Server) handleCreateSection(ctx context.Context, input *CreateSectionInput) (*SectionOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	section, err := s.services.Hierarchy.CreateSection(ctx, userID, input.BookID, service.CreateSectionRequest{
		Title:       input.Body.Title,
		Description: input.Body.Description,
	})
	if err != nil {
		return nil, err
	}
	return &SectionOutput{Body: section}, nil
}

func (s *Server) handleGetSection(ctx context.Context, input *SectionPathInput) (*SectionOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	section, err := s.services.Hierarchy.GetSection(ctx, userID, input.SectionID)
	if err != nil {
		return nil, err
	}
	return &SectionOutput{Body: section}, nil
}

func (s *Server) handleUpdateSection(ctx context.Context, input *UpdateSectionInput) (*SectionOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	section, err := s.services.Hierarchy.UpdateSection(ctx, userID, input.SectionID, input.Body)
	if err != nil {
		return nil, err
	}
	return &SectionOutput{Body: section}, nil
}

func (s *Server) handleDeleteSection(ctx context.Context, input *SectionPathInput) (*struct{}, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Hierarchy.DeleteSection(ctx, userID, input.SectionID); err != nil {
		return nil, err
	}
	return nil, nil
}
