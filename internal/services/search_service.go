package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"prepx/internal/config"
	"prepx/internal/models"
	"prepx/internal/observability"
	contextutils "prepx/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// SearchServiceInterface defines cross-entity search
type SearchServiceInterface interface {
	Search(ctx context.Context, viewerID int, query, searchType string) (*models.SearchResults, error)
}

// SearchService runs case-insensitive substring search over users, questions and posts
type SearchService struct {
	db     *sql.DB
	cfg    *config.Config
	logger *observability.Logger
}

var _ SearchServiceInterface = (*SearchService)(nil)

// NewSearchServiceWithLogger creates a new SearchService instance with logger
func NewSearchServiceWithLogger(db *sql.DB, cfg *config.Config, logger *observability.Logger) *SearchService {
	return &SearchService{db: db, cfg: cfg, logger: logger}
}

// Search matches query against each requested type, returning at most SearchResultLimit hits per type
func (s *SearchService) Search(ctx context.Context, viewerID int, query, searchType string) (result0 *models.SearchResults, err error) {
	query = strings.TrimSpace(query)
	ctx, span := observability.TraceSocialFunction(ctx, "search",
		observability.AttributeSearch(query), attribute.String("search.type", searchType))
	defer observability.FinishSpan(span, &err)

	if len([]rune(query)) < config.SearchMinQueryLength {
		return nil, contextutils.InvalidInputf("search query must be at least %d characters", config.SearchMinQueryLength)
	}
	if searchType == "" {
		searchType = models.SearchTypeAll
	}
	switch searchType {
	case models.SearchTypeAll, models.SearchTypeUsers, models.SearchTypeQuestions, models.SearchTypePosts:
	default:
		return nil, contextutils.InvalidInputf("invalid search type %q", searchType)
	}

	pattern := "%" + escapeLike(query) + "%"
	results := &models.SearchResults{Query: query}
	want := func(t string) bool { return searchType == models.SearchTypeAll || searchType == t }

	if want(models.SearchTypeUsers) {
		rows, err := s.db.QueryContext(ctx, `SELECT id, username, full_name, avatar_url FROM users
			WHERE is_banned = FALSE AND (username ILIKE $1 OR full_name ILIKE $1)
			ORDER BY username LIMIT $2`, pattern, config.SearchResultLimit)
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to search users")
		}
		if results.Users, err = scanUserSummaries(rows); err != nil {
			return nil, err
		}
	}

	if want(models.SearchTypeQuestions) {
		rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM questions
			WHERE is_active = TRUE AND (question_text ILIKE $1 OR topic ILIKE $1 OR subject ILIKE $1)
			ORDER BY created_at DESC, id DESC LIMIT $2`, questionSelectFields), pattern, config.SearchResultLimit)
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to search questions")
		}
		questions, err := scanQuestions(rows)
		if err != nil {
			return nil, err
		}
		results.Questions = make([]models.QuestionView, 0, len(questions))
		for _, q := range questions {
			results.Questions = append(results.Questions, q.PublicView())
		}
	}

	if want(models.SearchTypePosts) {
		rows, err := s.db.QueryContext(ctx, postSelect+` WHERE u.is_banned = FALSE AND p.content ILIKE $2
			ORDER BY p.created_at DESC, p.id DESC LIMIT $3`, viewerID, pattern, config.SearchResultLimit)
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to search posts")
		}
		if results.Posts, err = scanPosts(rows); err != nil {
			return nil, err
		}
	}

	return results, nil
}
