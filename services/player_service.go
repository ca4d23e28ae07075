package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dop-amin/foosball-tracker/models"
	"github.com/dop-amin/foosball-tracker/repositories"
	"github.com/dop-amin/foosball-tracker/storage"
)

var avatarExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

type PlayerService interface {
	Create(ctx context.Context, name string) (*models.Player, error)
	GetByID(ctx context.Context, id int) (*models.Player, error)
	// List returns the live leaderboard: rating descending, ties by id.
	List(ctx context.Context) ([]*models.Player, error)
	Rename(ctx context.Context, id int, name string) (*models.Player, error)
	// UploadAvatar stores the image in object storage and remembers its key.
	// Fails with ErrUploaderDisabled when no uploader is configured.
	UploadAvatar(ctx context.Context, id int, contentType string, reader io.Reader) (*models.Player, error)
}

type playerService struct {
	playerRepo repositories.PlayerRepository
	uploader   storage.FileUploader
	logger     *slog.Logger
}

func NewPlayerService(playerRepo repositories.PlayerRepository, uploader storage.FileUploader, logger *slog.Logger) PlayerService {
	return &playerService{playerRepo: playerRepo, uploader: uploader, logger: logger}
}

func (s *playerService) Create(ctx context.Context, name string) (*models.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrPlayerNameRequired
	}
	player := &models.Player{
		Name:   name,
		Rating: models.BaseRating,
	}
	if err := s.playerRepo.Create(ctx, player); err != nil {
		return nil, err
	}
	s.logger.Info("player created", slog.Int("player_id", player.ID), slog.String("name", player.Name))
	return player, nil
}

func (s *playerService) GetByID(ctx context.Context, id int) (*models.Player, error) {
	player, err := s.playerRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrPlayerNotFound, id)
		}
		return nil, err
	}
	s.fillAvatarURL(player)
	return player, nil
}

func (s *playerService) List(ctx context.Context) ([]*models.Player, error) {
	players, err := s.playerRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range players {
		s.fillAvatarURL(p)
	}
	return players, nil
}

func (s *playerService) Rename(ctx context.Context, id int, name string) (*models.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrPlayerNameRequired
	}
	if err := s.playerRepo.UpdateName(ctx, id, name); err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrPlayerNotFound, id)
		}
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *playerService) UploadAvatar(ctx context.Context, id int, contentType string, reader io.Reader) (*models.Player, error) {
	if s.uploader == nil {
		return nil, ErrUploaderDisabled
	}
	ext, ok := avatarExtensions[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported content type %q", ErrValidationFailed, contentType)
	}

	player, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("avatars/player_%d.%s", id, ext)
	result, err := s.uploader.Upload(ctx, key, contentType, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to upload avatar for player %d: %w", id, err)
	}

	// Старый файл с другим расширением больше не нужен.
	if player.AvatarKey != nil && *player.AvatarKey != result.Key {
		if err := s.uploader.Delete(ctx, *player.AvatarKey); err != nil {
			s.logger.Warn("failed to delete previous avatar",
				slog.Int("player_id", id),
				slog.String("key", *player.AvatarKey),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.playerRepo.UpdateAvatarKey(ctx, id, &result.Key); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *playerService) fillAvatarURL(player *models.Player) {
	if s.uploader == nil || player.AvatarKey == nil {
		return
	}
	url := s.uploader.PublicURL(*player.AvatarKey)
	player.AvatarURL = &url
}
