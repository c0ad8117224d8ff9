package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/studytrackapp/studytrack-server/internal/domain"
	"github.com/studytrackapp/studytrack-server/internal/service"
)

func (s *Server) registerTopicRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTopics",
		Method:      http.MethodGet,
		Path:        "/api/v1/chapters/{chapterId}/topics",
		Summary:     "List topics",
		Description: "Returns the topics of a chapter",
		Tags:        []string{"Topics"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListTopics)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createTopic",
		Method:        http.MethodPost,
		Path:          "/api/v1/chapters/{chapterId}/topics",
		Summary:       "Create topic",
		Description:   "Adds an incomplete topic and grows the chapter and book totals",
		Tags:          []string{"Topics"},
		Security:      []map[string][]string{{"bearer": {}}},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateTopic)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTopic",
		Method:      http.MethodGet,
		Path:        "/api/v1/topics/{topicId}",
		Summary:     "Get topic",
		Tags:        []string{"Topics"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetTopic)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateTopic",
		Method:      http.MethodPatch,
		Path:        "/api/v1/topics/{topicId}",
		Summary:     "Update topic",
		Description: "Updates title or description. Use the toggle operation to change completion.",
		Tags:        []string{"Topics"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateTopic)

	huma.Register(s.api, huma.Operation{
		OperationID: "toggleTopic",
		Method:      http.MethodPatch,
		Path:        "/api/v1/topics/{topicId}/toggle",
		Summary:     "Toggle topic",
		Description: "Flips topic completion and cascades the change to chapter, section and book counters",
		Tags:        []string{"Topics"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleToggleTopic)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteTopic",
		Method:      http.MethodDelete,
		Path:        "/api/v1/topics/{topicId}",
		Summary:     "Delete topic",
		Tags:        []string{"Topics"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteTopic)
}

// CreateTopicRequest is the request body for creating a topic.
type CreateTopicRequest struct {
	Title       string `json:"title" doc:"Topic title"`
	Description string `json:"description,omitempty" doc:"Free-form description"`
}

// CreateTopicInput wraps the create topic request for Huma.
type CreateTopicInput struct {
	ChapterID string `path:"chapterId" doc:"Chapter ID"`
	Body      CreateTopicRequest
}

// TopicPathInput identifies a topic.
type TopicPathInput struct {
	TopicID string `path:"topicId" doc:"Topic ID"`
}

// UpdateTopicInput wraps the update topic request for Huma.
type UpdateTopicInput struct {
	TopicID string `path:"topicId" doc:"Topic ID"`
	Body    service.UpdateTopicRequest
}

// ListTopicsResponse contains a chapter's topics.
type ListTopicsResponse struct {
	Topics []*domain.Topic `json:"topics" doc:"Topics ordered by creation"`
}

// ListTopicsOutput wraps the list topics response for Huma.
type ListTopicsOutput struct {
	Body ListTopicsResponse
}

// TopicOutput wraps a single topic for Huma.
type TopicOutput struct {
	Body *domain.Topic
}

// TopicToggleOutput wraps a topic toggle result for Huma.
type TopicToggleOutput struct {
	Body *service.TopicToggleResult
}

func (s *Server) handleListTopics(ctx context.Context, input *ChapterPathInput) (*ListTopicsOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	topics, err := s.services.Hierarchy.ListTopics(ctx, userID, input.ChapterID)
	if err != nil {
		return nil, err
	}
	return &ListTopicsOutput{Body: ListTopicsResponse{Topics: topics}}, nil
}

func (s *Server) handleCreateTopic(ctx context.Context, input *CreateTopicInput) (*TopicOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	topic, err := s.services.Hierarchy.CreateTopic(ctx, userID, input.ChapterID, service.CreateTopicRequest{
		Title:       input.Body.Title,
		Description: input.Body.Description,
	})
	if err != nil {
		return nil, err
	}
	return &TopicOutput{Body: topic}, nil
}

func (s *Server) handleGetTopic(ctx context.Context, input *TopicPathInput) (*TopicOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	topic, err := s.services.Hierarchy.GetTopic(ctx, userID, input.TopicID)
	if err != nil {
		return nil, err
	}
	return &TopicOutput{Body: topic}, nil
}

func (s *Server) handleUpdateTopic(ctx context.Context, input *UpdateTopicInput) (*TopicOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	topic, err := s.services.Hierarchy.UpdateTopic(ctx, userID, input.TopicID, input.Body)
	if err != nil {
		return nil, err
	}
	return &TopicOutput{Body: topic}, nil
}

func (s *Server) handleToggleTopic(ctx context.Context, input *TopicPathInput) (*TopicToggleOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Hierarchy.ToggleTopic(ctx, userID, input.TopicID)
	if err != nil {
		return nil, err
	}
	return &TopicToggleOutput{Body: result}, nil
}

func (s *Server) handleDeleteTopic(ctx context.Context, input *TopicPathInput) (*struct{}, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Hierarchy.DeleteTopic(ctx, userID, input.TopicID); err != nil {
		return nil, err
	}
	return nil, nil
}
