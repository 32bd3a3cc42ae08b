package services

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"path"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// imageExtensions maps the accepted image types to the stored file extension.
var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

type uploadServiceImpl struct {
	logger    zerolog.Logger
	storage   ObjectStorage
	users     UserService
	maxSize   int64
	keyPrefix string
}

func NewUploadService(
	logger zerolog.Logger,
	storage ObjectStorage,
	users UserService,
	maxSize int64,
	keyPrefix string,
) UploadService {
	return &uploadServiceImpl{
		logger:    logger,
		storage:   storage,
		users:     users,
		maxSize:   maxSize,
		keyPrefix: keyPrefix,
	}
}

func (s *uploadServiceImpl) UploadProfilePicture(ctx context.Context, actor Actor, params UploadParams) (*UploadResult, error) {
	if params.Size <= 0 {
		return nil, newValidationError("image", "file is empty")
	}
	if params.Size > s.maxSize {
		s.logger.Error().
			Int64("size", params.Size).
			Int64("max_size", s.maxSize).
			Msg("file too large")
		return nil, ErrFileTooLarge
	}

	// Read at most one byte past the limit so a lying size is still caught.
	data, err := io.ReadAll(io.LimitReader(params.Body, s.maxSize+1))
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to read upload")
		return nil, err
	}
	if int64(len(data)) > s.maxSize {
		s.logger.Error().
			Int64("max_size", s.maxSize).
			Msg("file too large")
		return nil, ErrFileTooLarge
	}

	// The client supplied content type is ignored.
	contentType := http.DetectContentType(data)
	ext, ok := imageExtensions[contentType]
	if !ok {
		s.logger.Error().
			Str("content_type", contentType).
			Str("filename", params.Filename).
			Msg("unsupported media type")
		return nil, ErrUnsupportedMediaType
	}

	key := path.Join(s.keyPrefix, strconv.FormatInt(actor.UserID, 10), uuid.NewString()+ext)
	err = s.storage.Put(ctx, key, contentType, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("key", key).
			Msg("failed to store upload")
		return nil, err
	}
	s.logger.Debug().
		Str("key", key).
		Int("size", len(data)).
		Msg("stored upload")

	imageURL := s.storage.URL(key)
	_, err = s.users.UpdateProfile(ctx, UpdateProfileParams{
		UserID:            actor.UserID,
		ProfilePictureURL: &imageURL,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("user_id", actor.UserID).
		Str("key", key).
		Msg("uploaded profile picture")
	return &UploadResult{
		Key:      key,
		ImageURL: imageURL,
	}, nil
}
