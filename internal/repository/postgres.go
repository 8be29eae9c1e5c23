package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/iago/content-orchestrator-back/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS topics (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	brand_id TEXT NOT NULL,
	campaign_id TEXT NOT NULL DEFAULT '',
	source_topic_id TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL,
	keyword_focus JSONB,
	search_intent TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'suggested',
	outline JSONB,
	sources JSONB,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS topics_source_key
	ON topics (user_id, brand_id, source_topic_id) WHERE source_topic_id <> '';
CREATE TABLE IF NOT EXISTS custom_instructions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	brand_id TEXT NOT NULL,
	name TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS generation_sessions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	brand_id TEXT NOT NULL,
	status TEXT NOT NULL,
	topics JSONB NOT NULL,
	completed_articles INT NOT NULL DEFAULT 0,
	total_articles INT NOT NULL DEFAULT 0,
	request JSONB NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS articles (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	topic_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	brand_id TEXT NOT NULL,
	title TEXT NOT NULL,
	excerpt TEXT NOT NULL DEFAULT '',
	markdown TEXT NOT NULL,
	html TEXT NOT NULL,
	word_count INT NOT NULL DEFAULT 0,
	featured_image JSONB,
	model_id TEXT NOT NULL DEFAULT '',
	used_fallback BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS wordpress_integrations (
	brand_id TEXT PRIMARY KEY,
	site_url TEXT NOT NULL,
	username TEXT NOT NULL,
	sealed_password TEXT NOT NULL DEFAULT '',
	connected BOOLEAN NOT NULL DEFAULT TRUE,
	updated_at TIMESTAMPTZ NOT NULL
);
`

// PostgresStore is the pgx backed Store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pg pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping pg: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (r *PostgresStore) Close() {
	r.pool.Close()
}

// Migrate creates the tables when they are missing.
func (r *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

const topicColumns = `id, user_id, brand_id, campaign_id, source_topic_id, title, keyword_focus, search_intent, status, outline, sources, created_at`

func (r *PostgresStore) ListTopics(ctx context.Context, filter domain.TopicListFilter) ([]domain.Topic, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+topicColumns+`
		FROM topics
		WHERE ($1 = '' OR user_id = $1)
			AND ($2 = '' OR brand_id = $2)
			AND ($3 = '' OR status = $3)
		ORDER BY created_at DESC, id
	`, filter.UserID, filter.BrandID, string(filter.Status))
	if err != nil {
		return nil, fmt.Errorf("query topics: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Topic, 0)
	for rows.Next() {
		topic, err := scanTopic(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, topic)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate topics: %w", err)
	}
	return items, nil
}

func (r *PostgresStore) GetTopic(ctx context.Context, topicID string) (*domain.Topic, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+topicColumns+` FROM topics WHERE id = $1`, topicID)
	topic, err := scanTopic(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &topic, nil
}

func (r *PostgresStore) UpsertSelectedTopic(ctx context.Context, topic *domain.Topic) (*domain.Topic, error) {
	id := topic.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := topic.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	keywords, outline, sources, err := encodeTopicLists(topic)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO topics (`+topicColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (user_id, brand_id, source_topic_id) WHERE source_topic_id <> ''
		DO UPDATE SET
			title = EXCLUDED.title,
			keyword_focus = EXCLUDED.keyword_focus,
			search_intent = EXCLUDED.search_intent,
			status = EXCLUDED.status,
			outline = EXCLUDED.outline
		RETURNING `+topicColumns,
		id,
		topic.UserID,
		topic.BrandID,
		topic.CampaignID,
		topic.SourceTopicID,
		topic.Title,
		keywords,
		string(topic.Intent),
		string(topic.Status),
		outline,
		sources,
		createdAt,
	)
	stored, err := scanTopic(row)
	if err != nil {
		return nil, fmt.Errorf("upsert topic: %w", err)
	}
	return &stored, nil
}

func (r *PostgresStore) InsertTopics(ctx context.Context, topics []domain.Topic) error {
	if len(topics) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, topic := range topics {
		keywords, outline, sources, err := encodeTopicLists(&topic)
		if err != nil {
			return err
		}
		id := topic.ID
		if id == "" {
			id = uuid.NewString()
		}
		createdAt := topic.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		batch.Queue(`
			INSERT INTO topics (`+topicColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		`,
			id,
			topic.UserID,
			topic.BrandID,
			topic.CampaignID,
			topic.SourceTopicID,
			topic.Title,
			keywords,
			string(topic.Intent),
			string(topic.Status),
			outline,
			sources,
			createdAt,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range topics {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert topic: %w", err)
		}
	}
	return nil
}

func (r *PostgresStore) ListTopicTitles(ctx context.Context, brandID, campaignID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT title FROM topics WHERE brand_id = $1 AND campaign_id = $2
	`, brandID, campaignID)
	if err != nil {
		return nil, fmt.Errorf("query topic titles: %w", err)
	}
	titles, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect topic titles: %w", err)
	}
	return titles, nil
}

func (r *PostgresStore) UpdateTopicStatus(ctx context.Context, topicID string, status domain.TopicStatus) error {
	command, err := r.pool.Exec(ctx, `UPDATE topics SET status = $2 WHERE id = $1`, topicID, string(status))
	if err != nil {
		return fmt.Errorf("update topic status: %w", err)
	}
	if command.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresStore) DeleteTopic(ctx context.Context, topicID string) error {
	command, err := r.pool.Exec(ctx, `DELETE FROM topics WHERE id = $1`, topicID)
	if err != nil {
		return fmt.Errorf("delete topic: %w", err)
	}
	if command.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresStore) CreateInstruction(ctx context.Context, instruction *domain.CustomInstruction) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO custom_instructions (id, user_id, brand_id, name, content, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, instruction.ID, instruction.UserID, instruction.BrandID, instruction.Name, instruction.Content, instruction.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert instruction: %w", err)
	}
	return nil
}

func (r *PostgresStore) GetInstruction(ctx context.Context, instructionID string) (*domain.CustomInstruction, error) {
	var instruction domain.CustomInstruction
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, brand_id, name, content, created_at
		FROM custom_instructions
		WHERE id = $1
	`, instructionID).Scan(
		&instruction.ID,
		&instruction.UserID,
		&instruction.BrandID,
		&instruction.Name,
		&instruction.Content,
		&instruction.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query instruction: %w", err)
	}
	return &instruction, nil
}

func (r *PostgresStore) ListInstructions(ctx context.Context, userID, brandID string) ([]domain.CustomInstruction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, brand_id, name, content, created_at
		FROM custom_instructions
		WHERE ($1 = '' OR user_id = $1) AND ($2 = '' OR brand_id = $2)
		ORDER BY created_at DESC
	`, userID, brandID)
	if err != nil {
		return nil, fmt.Errorf("query instructions: %w", err)
	}
	items, err := pgx.CollectRows(rows, pgx.RowToStructByPos[domain.CustomInstruction])
	if err != nil {
		return nil, fmt.Errorf("collect instructions: %w", err)
	}
	return items, nil
}

func (r *PostgresStore) DeleteInstruction(ctx context.Context, instructionID string) error {
	command, err := r.pool.Exec(ctx, `DELETE FROM custom_instructions WHERE id = $1`, instructionID)
	if err != nil {
		return fmt.Errorf("delete instruction: %w", err)
	}
	if command.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresStore) CreateSession(ctx context.Context, session *domain.GenerationSession) error {
	topics, request, err := encodeSession(session)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO generation_sessions (
			id,
			user_id,
			brand_id,
			status,
			topics,
			completed_articles,
			total_articles,
			request,
			error_message,
			created_at,
			updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		session.ID,
		session.UserID,
		session.BrandID,
		string(session.Status),
		topics,
		session.CompletedArticles,
		session.TotalArticles,
		request,
		session.ErrorMessage,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *PostgresStore) UpdateSession(ctx context.Context, session *domain.GenerationSession) error {
	command, err := r.pool.Exec(ctx, `
		UPDATE generation_sessions
		SET status = $2,
			completed_articles = $3,
			total_articles = $4,
			error_message = $5,
			updated_at = $6
		WHERE id = $1
	`, session.ID, string(session.Status), session.CompletedArticles, session.TotalArticles, session.ErrorMessage, session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if command.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresStore) GetSession(ctx context.Context, sessionID string) (*domain.GenerationSession, error) {
	var (
		session domain.GenerationSession
		status  string
		topics  []byte
		request []byte
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, brand_id, status, topics, completed_articles, total_articles, request, error_message, created_at, updated_at
		FROM generation_sessions
		WHERE id = $1
	`, sessionID).Scan(
		&session.ID,
		&session.UserID,
		&session.BrandID,
		&status,
		&topics,
		&session.CompletedArticles,
		&session.TotalArticles,
		&request,
		&session.ErrorMessage,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query session: %w", err)
	}

	session.Status = domain.SessionStatus(status)
	if err := json.Unmarshal(topics, &session.Topics); err != nil {
		return nil, fmt.Errorf("decode session topics: %w", err)
	}
	if err := json.Unmarshal(request, &session.Request); err != nil {
		return nil, fmt.Errorf("decode session request: %w", err)
	}
	return &session, nil
}

func (r *PostgresStore) CreateArticle(ctx context.Context, article *domain.Article) error {
	var image []byte
	if article.FeaturedImage != nil {
		encoded, err := json.Marshal(article.FeaturedImage)
		if err != nil {
			return fmt.Errorf("encode featured image: %w", err)
		}
		image = encoded
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO articles (
			id,
			session_id,
			topic_id,
			user_id,
			brand_id,
			title,
			excerpt,
			markdown,
			html,
			word_count,
			featured_image,
			model_id,
			used_fallback,
			created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`,
		article.ID,
		article.SessionID,
		article.TopicID,
		article.UserID,
		article.BrandID,
		article.Title,
		article.Excerpt,
		article.Markdown,
		article.HTML,
		article.WordCount,
		image,
		article.ModelID,
		article.UsedFallback,
		article.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert article: %w", err)
	}
	return nil
}

func (r *PostgresStore) ListArticles(ctx context.Context, filter domain.ArticleListFilter) ([]domain.Article, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, session_id, topic_id, user_id, brand_id, title, excerpt, markdown, html, word_count, featured_image, model_id, used_fallback, created_at
		FROM articles
		WHERE ($1 = '' OR user_id = $1)
			AND ($2 = '' OR brand_id = $2)
			AND ($3 = '' OR session_id = $3)
		ORDER BY created_at DESC
	`, filter.UserID, filter.BrandID, filter.SessionID)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Article, 0)
	for rows.Next() {
		var (
			article domain.Article
			image   []byte
		)
		if err := rows.Scan(
			&article.ID,
			&article.SessionID,
			&article.TopicID,
			&article.UserID,
			&article.BrandID,
			&article.Title,
			&article.Excerpt,
			&article.Markdown,
			&article.HTML,
			&article.WordCount,
			&image,
			&article.ModelID,
			&article.UsedFallback,
			&article.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		if len(image) > 0 {
			var featured domain.FeaturedImage
			if err := json.Unmarshal(image, &featured); err != nil {
				return nil, fmt.Errorf("decode featured image: %w", err)
			}
			article.FeaturedImage = &featured
		}
		items = append(items, article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}
	return items, nil
}

func (r *PostgresStore) GetIntegration(ctx context.Context, brandID string) (*domain.WordPressIntegration, error) {
	var integration domain.WordPressIntegration
	err := r.pool.QueryRow(ctx, `
		SELECT brand_id, site_url, username, sealed_password, connected, updated_at
		FROM wordpress_integrations
		WHERE brand_id = $1
	`, brandID).Scan(
		&integration.BrandID,
		&integration.SiteURL,
		&integration.Username,
		&integration.SealedPassword,
		&integration.Connected,
		&integration.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query integration: %w", err)
	}
	return &integration, nil
}

func (r *PostgresStore) SaveIntegration(ctx context.Context, integration *domain.WordPressIntegration) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO wordpress_integrations (brand_id, site_url, username, sealed_password, connected, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (brand_id) DO UPDATE SET
			site_url = EXCLUDED.site_url,
			username = EXCLUDED.username,
			sealed_password = EXCLUDED.sealed_password,
			connected = EXCLUDED.connected,
			updated_at = EXCLUDED.updated_at
	`,
		integration.BrandID,
		integration.SiteURL,
		integration.Username,
		integration.SealedPassword,
		integration.Connected,
		integration.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save integration: %w", err)
	}
	return nil
}

func (r *PostgresStore) DisconnectIntegration(ctx context.Context, brandID string) error {
	command, err := r.pool.Exec(ctx, `
		UPDATE wordpress_integrations
		SET connected = FALSE, sealed_password = '', updated_at = $2
		WHERE brand_id = $1
	`, brandID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("disconnect integration: %w", err)
	}
	if command.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// scanTopic reads a topics row through TopicFromRow so legacy
// keyword_focus shapes are normalized on the way out.
func scanTopic(row pgx.Row) (domain.Topic, error) {
	var (
		record       domain.TopicRow
		keywordFocus []byte
		sources      []byte
	)
	err := row.Scan(
		&record.ID,
		&record.UserID,
		&record.BrandID,
		&record.CampaignID,
		&record.SourceTopicID,
		&record.Title,
		&keywordFocus,
		&record.Intent,
		&record.Status,
		&record.Outline,
		&sources,
		&record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Topic{}, err
		}
		return domain.Topic{}, fmt.Errorf("scan topic: %w", err)
	}
	if len(keywordFocus) > 0 {
		if err := json.Unmarshal(keywordFocus, &record.KeywordFocus); err != nil {
			return domain.Topic{}, fmt.Errorf("decode keyword_focus: %w", err)
		}
	}
	if len(sources) > 0 {
		if err := json.Unmarshal(sources, &record.Sources); err != nil {
			return domain.Topic{}, fmt.Errorf("decode sources: %w", err)
		}
	}
	return domain.TopicFromRow(record), nil
}

func encodeTopicLists(topic *domain.Topic) ([]byte, []byte, []byte, error) {
	keywords, err := json.Marshal(domain.KeywordFocus(topic.Keywords))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("encode keywords: %w", err)
	}
	outline, err := json.Marshal(topic.Outline)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("encode outline: %w", err)
	}
	sources, err := json.Marshal(topic.Sources)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("encode sources: %w", err)
	}
	return keywords, outline, sources, nil
}

func encodeSession(session *domain.GenerationSession) ([]byte, []byte, error) {
	topics, err := json.Marshal(session.Topics)
	if err != nil {
		return nil, nil, fmt.Errorf("encode session topics: %w", err)
	}
	request, err := json.Marshal(session.Request)
	if err != nil {
		return nil, nil, fmt.Errorf("encode session request: %w", err)
	}
	return topics, request, nil
}
