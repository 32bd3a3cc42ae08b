package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"
)

type memoryStorage struct {
	objects      map[string][]byte
	contentTypes map[string]string
	err          error
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{
		objects:      make(map[string][]byte),
		contentTypes: make(map[string]string),
	}
}

func (m *memoryStorage) Put(_ context.Context, key, contentType string, body io.Reader, _ int64) error {
	if m.err != nil {
		return m.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.objects[key] = data
	m.contentTypes[key] = contentType
	return nil
}

func (m *memoryStorage) URL(key string) string {
	return "https://cdn.example.com/" + key
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestUploadProfilePicture_StoresAndUpdatesProfile(t *testing.T) {
	mock := newMockPool(t)
	storage := newMemoryStorage()
	svc := NewUploadService(zerolog.Nop(), storage, NewUserService(zerolog.Nop(), mock), 1024, "profile-pictures")

	mock.ExpectQuery(`INSERT INTO profiles`).
		WithArgs(regularUser.UserID, (*string)(nil), (*string)(nil), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(mock.NewRows([]string{"name", "bio", "profile_picture_url"}).
			AddRow("Ana", "", "https://cdn.example.com/x.png"))

	result, err := svc.UploadProfilePicture(context.Background(), regularUser, UploadParams{
		Filename: "avatar.txt",
		Size:     int64(len(pngHeader)),
		Body:     bytes.NewReader(pngHeader),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(result.Key, "profile-pictures/7/") || !strings.HasSuffix(result.Key, ".png") {
		t.Fatalf("unexpected key: %q", result.Key)
	}
	if result.ImageURL != "https://cdn.example.com/"+result.Key {
		t.Fatalf("unexpected url: %q", result.ImageURL)
	}
	if storage.contentTypes[result.Key] != "image/png" {
		t.Fatalf("unexpected content type: %q", storage.contentTypes[result.Key])
	}
	if !bytes.Equal(storage.objects[result.Key], pngHeader) {
		t.Fatalf("stored object differs from upload")
	}
	expectationsMet(t, mock)
}

func TestUploadProfilePicture_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		size    int64
		body    []byte
		wantErr func(error) bool
	}{
		{
			name: "empty",
			size: 0,
			body: nil,
			wantErr: func(err error) bool {
				var verr *ValidationError
				return errors.As(err, &verr)
			},
		},
		{
			name:    "declared too large",
			size:    17,
			body:    bytes.Repeat([]byte{'a'}, 17),
			wantErr: func(err error) bool { return errors.Is(err, ErrFileTooLarge) },
		},
		{
			name:    "body larger than declared",
			size:    4,
			body:    bytes.Repeat([]byte{'a'}, 32),
			wantErr: func(err error) bool { return errors.Is(err, ErrFileTooLarge) },
		},
		{
			name:    "not an image",
			size:    11,
			body:    []byte("hello world"),
			wantErr: func(err error) bool { return errors.Is(err, ErrUnsupportedMediaType) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockPool(t)
			storage := newMemoryStorage()
			svc := NewUploadService(zerolog.Nop(), storage, NewUserService(zerolog.Nop(), mock), 16, "p")

			_, err := svc.UploadProfilePicture(context.Background(), regularUser, UploadParams{
				Filename: "x",
				Size:     tt.size,
				Body:     bytes.NewReader(tt.body),
			})
			if !tt.wantErr(err) {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(storage.objects) != 0 {
				t.Fatalf("expected nothing to be stored")
			}
			expectationsMet(t, mock)
		})
	}
}

func TestUploadProfilePicture_StorageFailure(t *testing.T) {
	mock := newMockPool(t)
	storage := newMemoryStorage()
	storage.err = errors.New("bucket unavailable")
	svc := NewUploadService(zerolog.Nop(), storage, NewUserService(zerolog.Nop(), mock), 1024, "p")

	_, err := svc.UploadProfilePicture(context.Background(), regularUser, UploadParams{
		Filename: "a.png",
		Size:     int64(len(pngHeader)),
		Body:     bytes.NewReader(pngHeader),
	})
	if err == nil || err.Error() != "bucket unavailable" {
		t.Fatalf("expected storage error, got %v", err)
	}
	expectationsMet(t, mock)
}
