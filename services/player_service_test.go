package services

import (
	"context"
	"io"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dop-amin/foosball-tracker/models"
	"github.com/dop-amin/foosball-tracker/storage"
)

type fakeUploader struct {
	uploaded map[string]string
	deleted  []string
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{uploaded: make(map[string]string)}
}

func (f *fakeUploader) Upload(_ context.Context, key, contentType string, reader io.Reader) (*storage.StoredObject, error) {
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	f.uploaded[key] = string(body)
	return &storage.StoredObject{Key: key, PublicURL: f.PublicURL(key), ETag: "etag"}, nil
}

func (f *fakeUploader) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	delete(f.uploaded, key)
	return nil
}

func (f *fakeUploader) PublicURL(key string) string {
	return "https://cdn.test/" + key
}

func TestPlayerService_Create(t *testing.T) {
	ctx := context.Background()
	playerRepo := newFakePlayerRepo()
	svc := NewPlayerService(playerRepo, nil, discardLogger())

	player, err := svc.Create(ctx, "  Alice  ")
	require.NoError(t, err)
	assert.Equal(t, "Alice", player.Name)
	assert.Equal(t, models.BaseRating, player.Rating)
	assert.NotZero(t, player.ID)

	_, err = svc.Create(ctx, "   ")
	assert.ErrorIs(t, err, ErrPlayerNameRequired)
}

func TestPlayerService_Rename(t *testing.T) {
	ctx := context.Background()
	playerRepo := newFakePlayerRepo()
	svc := NewPlayerService(playerRepo, nil, discardLogger())

	player, err := svc.Create(ctx, "Alice")
	require.NoError(t, err)

	renamed, err := svc.Rename(ctx, player.ID, "Alicia")
	require.NoError(t, err)
	assert.Equal(t, "Alicia", renamed.Name)

	_, err = svc.Rename(ctx, 999, "Nobody")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestPlayerService_ListOrdersByRating(t *testing.T) {
	ctx := context.Background()
	playerRepo := newFakePlayerRepo()
	svc := NewPlayerService(playerRepo, nil, discardLogger())

	ids := mustPlayers(playerRepo, 3)
	require.NoError(t, playerRepo.UpdateRating(ctx, nil, ids[1], 1600))
	require.NoError(t, playerRepo.UpdateRating(ctx, nil, ids[2], 1400))

	players, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, players, 3)
	assert.Equal(t, ids[1], players[0].ID)
	assert.Equal(t, ids[0], players[1].ID)
	assert.Equal(t, ids[2], players[2].ID)
}

func TestPlayerService_UploadAvatar(t *testing.T) {
	ctx := context.Background()
	playerRepo := newFakePlayerRepo()
	uploader := newFakeUploader()
	svc := NewPlayerService(playerRepo, uploader, discardLogger())

	player, err := svc.Create(ctx, "Alice")
	require.NoError(t, err)

	updated, err := svc.UploadAvatar(ctx, player.ID, "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	require.NotNil(t, updated.AvatarKey)
	require.NotNil(t, updated.AvatarURL)
	assert.Contains(t, *updated.AvatarURL, *updated.AvatarKey)
	assert.Contains(t, uploader.uploaded, *updated.AvatarKey)

	// Смена формата чистит старый файл.
	updated, err = svc.UploadAvatar(ctx, player.ID, "image/jpeg", strings.NewReader("jpg-bytes"))
	require.NoError(t, err)
	assert.Contains(t, uploader.deleted, "avatars/player_"+strconv.Itoa(player.ID)+".png")

	t.Run("unsupported content type", func(t *testing.T) {
		_, err := svc.UploadAvatar(ctx, player.ID, "text/plain", strings.NewReader("nope"))
		assert.ErrorIs(t, err, ErrValidationFailed)
	})
}

func TestPlayerService_UploadAvatarDisabled(t *testing.T) {
	ctx := context.Background()
	playerRepo := newFakePlayerRepo()
	svc := NewPlayerService(playerRepo, nil, discardLogger())

	player, err := svc.Create(ctx, "Alice")
	require.NoError(t, err)

	_, err = svc.UploadAvatar(ctx, player.ID, "image/png", strings.NewReader("png-bytes"))
	assert.ErrorIs(t, err, ErrUploaderDisabled)
}
