package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/iago/content-orchestrator-back/internal/domain"
	"github.com/iago/content-orchestrator-back/internal/repository"
	"github.com/iago/content-orchestrator-back/internal/wordpress"
)

// ErrIntegrationUnavailable means the brand has no connected CMS integration.
var ErrIntegrationUnavailable = errors.New("wordpress integration not connected")

type ConnectIntegrationInput struct {
	BrandID  string
	SiteURL  string
	Username string
	Password string
}

// ContentProxyService reads publish metadata of brand posts from the CMS
// using the credentials stored for that brand.
type ContentProxyService struct {
	repo   repository.IntegrationsRepository
	sealer *wordpress.Sealer
	client *wordpress.Client
	logger *log.Logger
}

func NewContentProxyService(
	repo repository.IntegrationsRepository,
	sealer *wordpress.Sealer,
	client *wordpress.Client,
	logger *log.Logger,
) *ContentProxyService {
	if client == nil {
		client = wordpress.NewClient(wordpress.ClientConfig{})
	}
	return &ContentProxyService{repo: repo, sealer: sealer, client: client, logger: logger}
}

func (s *ContentProxyService) PostMetadata(ctx context.Context, brandID, postID string) (domain.PostMetadata, error) {
	brandID = strings.TrimSpace(brandID)
	postID = strings.TrimSpace(postID)
	if brandID == "" || postID == "" {
		return domain.PostMetadata{}, fmt.Errorf("%w: brand_id and post_id are required", ErrInvalidInput)
	}
	id, err := strconv.ParseInt(postID, 10, 64)
	if err != nil || id <= 0 {
		return domain.PostMetadata{}, fmt.Errorf("%w: post_id must be a positive integer", ErrInvalidInput)
	}

	integration, err := s.repo.GetIntegration(ctx, brandID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.PostMetadata{}, ErrIntegrationUnavailable
		}
		return domain.PostMetadata{}, fmt.Errorf("load integration: %w", err)
	}
	if !integration.Connected || integration.SealedPassword == "" {
		return domain.PostMetadata{}, ErrIntegrationUnavailable
	}
	if s.sealer == nil {
		return domain.PostMetadata{}, errors.New("credential sealer not configured")
	}

	password, err := s.sealer.Open(integration.SealedPassword)
	if err != nil {
		return domain.PostMetadata{}, fmt.Errorf("open integration credentials: %w", err)
	}

	post, err := s.client.GetPost(ctx, wordpress.Credentials{
		SiteURL:  integration.SiteURL,
		Username: integration.Username,
		Password: password,
	}, id)
	if err != nil {
		if !errors.Is(err, wordpress.ErrPostNotFound) {
			s.logf("wordpress post lookup failed brand_id=%s post_id=%d err=%v", brandID, id, err)
		}
		return domain.PostMetadata{}, err
	}
	return post, nil
}

// Connect stores the brand credentials with the password sealed.
func (s *ContentProxyService) Connect(ctx context.Context, input ConnectIntegrationInput) (*domain.WordPressIntegration, error) {
	brandID := strings.TrimSpace(input.BrandID)
	siteURL := strings.TrimSuffix(strings.TrimSpace(input.SiteURL), "/")
	username := strings.TrimSpace(input.Username)
	if brandID == "" || siteURL == "" || username == "" || input.Password == "" {
		return nil, fmt.Errorf("%w: brand, site_url, username and password are required", ErrInvalidInput)
	}
	parsed, err := url.Parse(siteURL)
	if err != nil || (parsed.Scheme != "https" && parsed.Scheme != "http") || parsed.Host == "" {
		return nil, fmt.Errorf("%w: site_url must be an http(s) url", ErrInvalidInput)
	}
	if s.sealer == nil {
		return nil, errors.New("credential sealer not configured")
	}

	sealed, err := s.sealer.Seal(input.Password)
	if err != nil {
		return nil, fmt.Errorf("seal integration credentials: %w", err)
	}
	integration := &domain.WordPressIntegration{
		BrandID:        brandID,
		SiteURL:        siteURL,
		Username:       username,
		SealedPassword: sealed,
		Connected:      true,
		UpdatedAt:      time.Now().UTC(),
	}
	if err := s.repo.SaveIntegration(ctx, integration); err != nil {
		return nil, fmt.Errorf("save integration: %w", err)
	}
	return integration, nil
}

func (s *ContentProxyService) Disconnect(ctx context.Context, brandID string) error {
	if strings.TrimSpace(brandID) == "" {
		return fmt.Errorf("%w: brand is required", ErrInvalidInput)
	}
	return s.repo.DisconnectIntegration(ctx, brandID)
}

func (s *ContentProxyService) logf(format string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Printf(format, args...)
}
