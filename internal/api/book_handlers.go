package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/studytrackapp/studytrack-server/internal/domain"
	"github.com/studytrackapp/studytrack-server/internal/service"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books",
		Summary:     "List books",
		Description: "Returns the caller's books with their topic counters",
		Tags:        []string{"Books"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListBooks)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createBook",
		Method:        http.MethodPost,
		Path:          "/api/v1/books",
		Summary:       "Create book",
		Description:   "Creates an empty book",
		Tags:          []string{"Books"},
		Security:      []map[string][]string{{"bearer": {}}},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{bookId}",
		Summary:     "Get book",
		Description: "Returns a book with its sections, chapters and topics",
		Tags:        []string{"Books"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateBook",
		Method:      http.MethodPatch,
		Path:        "/api/v1/books/{bookId}",
		Summary:     "Update book",
		Description: "Updates the supplied book fields",
		Tags:        []string{"Books"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteBook",
		Method:      http.MethodDelete,
		Path:        "/api/v1/books/{bookId}",
		Summary:     "Delete book",
		Description: "Deletes a book with all its sections, chapters and topics",
		Tags:        []string{"Books"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteBook)
}

// === DTOs ===

// CreateBookRequest is the request body for creating a book.
type CreateBookRequest struct {
	Title       string `json:"title" doc:"Book title"`
	Color       string `json:"color" doc:"Display color, e.g. #3366ff"`
	Description string `json:"description,omitempty" doc:"Free-form description"`
	IsFavourite bool   `json:"is_favourite,omitempty" doc:"Pin the book"`
}

// CreateBookInput wraps the create book request for Huma.
type CreateBookInput struct {
	Body CreateBookRequest
}

// BookPathInput identifies a book.
type BookPathInput struct {
	BookID string `path:"bookId" doc:"Book ID"`
}

// UpdateBookInput wraps the update book request for Huma.
type UpdateBookInput struct {
	BookID string `path:"bookId" doc:"Book ID"`
	Body   service.UpdateBookRequest
}

// ListBooksResponse contains the caller's books.
type ListBooksResponse struct {
	Books []*domain.Book `json:"books" doc:"Books ordered by creation"`
}

// ListBooksOutput wraps the list books response for Huma.
type ListBooksOutput struct {
	Body ListBooksResponse
}

// BookOutput wraps a single book for Huma.
type BookOutput struct {
	Body *domain.Book
}

// BookDetailOutput wraps a book tree for Huma.
type BookDetailOutput struct {
	Body *service.BookDetail
}

// === Handlers ===

func (s *Server) handleListBooks(ctx context.Context, _ *struct{}) (*ListBooksOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	books, err := s.services.Hierarchy.ListBooks(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ListBooksOutput{Body: ListBooksResponse{Books: books}}, nil
}

func (s *Server) handleCreateBook(ctx context.Context, input *CreateBookInput) (*BookOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	book, err := s.services.Hierarchy.CreateBook(ctx, userID, service.CreateBookRequest{
		Title:       input.Body.Title,
		Color:       input.Body.Color,
		Description: input.Body.Description,
		IsFavourite: input.Body.IsFavourite,
	})
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *BookPathInput) (*BookDetailOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	detail, err := s.services.Hierarchy.GetBookDetail(ctx, userID, input.BookID)
	if err != nil {
		return nil, err
	}
	return &BookDetailOutput{Body: detail}, nil
}

func (s *Server) handleUpdateBook(ctx context.Context, input *UpdateBookInput) (*BookOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	book, err := s.services.Hierarchy.UpdateBook(ctx, userID, input.BookID, input.Body)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleDeleteBook(ctx context.Context, input *BookPathInput) (*struct{}, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Hierarchy.DeleteBook(ctx, userID, input.BookID); err != nil {
		return nil, err
	}
	return nil, nil
}
