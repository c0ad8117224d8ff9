package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/studytrackapp/studytrack-server/internal/auth"
	"github.com/studytrackapp/studytrack-server/internal/domain"
	"github.com/studytrackapp/studytrack-server/internal/id"
	"github.com/studytrackapp/studytrack-server/internal/service"
	"github.com/studytrackapp/studytrack-server/internal/store"
)

var (
	seedEmail    string
	seedPassword string
	seedDate     string
	seedAdmin    bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create a demo user with a book, a slot and linked progress",
	Long: `Create a demo account and walk it through a typical study day:

  - a book with one section, one chapter and two topics;
  - the first topic completed directly;
  - a 09:00-09:30 "Morning review" slot holding a TEXTBOOK task for the second topic;
  - that task completed with topic sync, which completes the second topic too.

The account must not own any books yet.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(cmd, true, func(ctx context.Context, e *env) error {
			return runSeed(ctx, cmd, e)
		})
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().StringVar(&seedEmail, "email", "demo@studytrack.local", "Demo account email")
	seedCmd.Flags().StringVar(&seedPassword, "password", "study-hard-2026", "Demo account password, used when the account is created")
	seedCmd.Flags().StringVar(&seedDate, "date", "2026-03-01", "Date of the demo slot (YYYY-MM-DD)")
	seedCmd.Flags().BoolVar(&seedAdmin, "admin", false, "Create the account as an admin")
}

func runSeed(ctx context.Context, cmd *cobra.Command, e *env) error {
	user, err := seedUser(ctx, e)
	if err != nil {
		return err
	}

	books, err := e.store.ListBooks(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("list books: %w", err)
	}
	if len(books) > 0 {
		return fmt.Errorf("%s already owns %d book(s); seed an empty account", user.Email, len(books))
	}

	clock := domain.SystemClock{}
	searchService := service.NewSearchService(e.index, e.store, e.log.Logger)
	hierarchy := service.NewHierarchyService(e.store, searchService, nil, nil, clock, e.log.Logger)
	slots := service.NewSlotService(e.store, nil, nil, clock, e.log.Logger)
	bridge := service.NewTopicTaskBridge(slots, hierarchy, e.store, e.log.Logger)

	book, err := hierarchy.CreateBook(ctx, user.ID, service.CreateBookRequest{
		Title:       "Guyton and Hall Physiology",
		Color:       "#c0392b",
		Description: "Medical physiology",
	})
	if err != nil {
		return fmt.Errorf("create book: %w", err)
	}
	section, err := hierarchy.CreateSection(ctx, user.ID, book.ID, service.CreateSectionRequest{Title: "The Heart"})
	if err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	chapter, err := hierarchy.CreateChapter(ctx, user.ID, section.ID, service.CreateChapterRequest{Title: "Cardiac Muscle"})
	if err != nil {
		return fmt.Errorf("create chapter: %w", err)
	}

	var topics [2]*domain.Topic
	for i, title := range []string{"Physiology of cardiac muscle", "Cardiac cycle"} {
		if topics[i], err = hierarchy.CreateTopic(ctx, user.ID, chapter.ID, service.CreateTopicRequest{Title: title}); err != nil {
			return fmt.Errorf("create topic: %w", err)
		}
	}

	if _, err := hierarchy.ToggleTopic(ctx, user.ID, topics[0].ID); err != nil {
		return fmt.Errorf("toggle topic: %w", err)
	}

	slot, err := slots.CreateSlot(ctx, user.ID, service.CreateSlotRequest{
		Date:      seedDate,
		StartTime: "09:00",
		EndTime:   "09:30",
		Title:     "Morning review",
	})
	if err != nil {
		return fmt.Errorf("create slot: %w", err)
	}
	_, task, err := slots.AddTask(ctx, user.ID, slot.ID, service.AddTaskRequest{
		Kind:          string(domain.TaskKindTextbook),
		TopicID:       topics[1].ID,
		TitleSnapshot: topics[1].Title,
	})
	if err != nil {
		return fmt.Errorf("add task: %w", err)
	}

	result, err := bridge.ToggleTaskWithTopic(ctx, user.ID, slot.ID, task.ID, true)
	if err != nil {
		return fmt.Errorf("toggle task: %w", err)
	}

	detail, err := hierarchy.GetBookDetail(ctx, user.ID, book.ID)
	if err != nil {
		return fmt.Errorf("reload book: %w", err)
	}

	if jsonOutput {
		return printJSON(cmd, map[string]any{"user": user.ID, "book": detail, "slot": result.Slot})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Seeded %s (%s)\n", user.Email, user.ID)
	fmt.Fprintf(out, "  book %s: %d/%d topics\n", book.ID, detail.CompletedTopics, detail.TotalTopics)
	fmt.Fprintf(out, "  slot %s on %s: %d/%d tasks\n", result.Slot.ID, result.Slot.Date, result.Slot.CompletedTasks, result.Slot.TotalTasks)
	return nil
}

// seedUser returns the account for seedEmail, creating it when missing.
func seedUser(ctx context.Context, e *env) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(seedEmail))

	user, err := e.store.GetUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !store.IsNotFound(err) {
		return nil, fmt.Errorf("get user: %w", err)
	}

	hash, err := auth.NewPasswordHasher(auth.DefaultPasswordParams).Hash(seedPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	role := domain.RoleUser
	if seedAdmin {
		role = domain.RoleAdmin
	}

	user = &domain.User{
		Syncable:     domain.Syncable{ID: id.MustGenerate(id.PrefixUser)},
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Demo",
		LastName:     "Student",
		Role:         role,
	}
	user.InitTimestamps()
	if err := e.store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}
