package services

import (
	"context"
	"strings"
	"time"

	"forumhub/app/events"
	"forumhub/app/models"
	"forumhub/app/repositories"
	"forumhub/app/storage"

	"github.com/pkg/errors"
)

// ProfileService manages a user's biodata, avatar, settings and devices
type ProfileService struct {
	users          repositories.UserRepository
	devices        repositories.DeviceRepository
	blobs          storage.BlobStore
	maxAvatarBytes int64
	hub            events.Publisher
}

// NewProfileService creates a new ProfileService
func NewProfileService(users repositories.UserRepository, devices repositories.DeviceRepository,
	blobs storage.BlobStore, maxAvatarBytes int64, hub events.Publisher) *ProfileService {
	return &ProfileService{
		users:          users,
		devices:        devices,
		blobs:          blobs,
		maxAvatarBytes: maxAvatarBytes,
		hub:            hub,
	}
}

// Get returns a user's public profile
func (s *ProfileService) Get(id string) (*models.User, error) {
	user, err := s.users.GetByID(id)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return user.Public(), nil
}

// Update replaces the user's biodata
func (s *ProfileService) Update(id string, bio models.Biodata) (*models.User, error) {
	bio.DisplayName = strings.TrimSpace(bio.DisplayName)
	bio.Bio = strings.TrimSpace(bio.Bio)
	bio.AvatarURL = strings.TrimSpace(bio.AvatarURL)
	if err := bio.Validate(); err != nil {
		return nil, validationError(err)
	}

	return s.modify(id, func(u *models.User) {
		bio.Apply(u)
	})
}

// SetNickname changes only the display name
func (s *ProfileService) SetNickname(id, nickname string) (*models.User, error) {
	bio := models.Biodata{DisplayName: strings.TrimSpace(nickname)}
	if err := bio.Validate(); err != nil {
		return nil, validationError(err)
	}

	return s.modify(id, func(u *models.User) {
		u.DisplayName = bio.DisplayName
		u.UpdatedAt = time.Now().UTC()
	})
}

// UploadAvatar stores an image as the user's avatar and records its URL
func (s *ProfileService) UploadAvatar(ctx context.Context, id string, data []byte) (*models.User, error) {
	if _, err := s.users.GetByID(id); err != nil {
		return nil, notFound(err, "user")
	}

	contentType, err := storage.DetectImage(data, s.maxAvatarBytes)
	if err != nil {
		return nil, err
	}

	url, err := s.blobs.Put(ctx, storage.AvatarKey(id), contentType, data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to store avatar")
	}

	return s.modify(id, func(u *models.User) {
		u.AvatarURL = url
		u.UpdatedAt = time.Now().UTC()
	})
}

// Settings returns the user's preferences
func (s *ProfileService) Settings(id string) (models.Settings, error) {
	user, err := s.users.GetByID(id)
	if err != nil {
		return models.Settings{}, notFound(err, "user")
	}
	return user.Settings, nil
}

// UpdateSettings replaces the user's preferences
func (s *ProfileService) UpdateSettings(id string, settings models.Settings) (models.Settings, error) {
	user, err := s.modify(id, func(u *models.User) {
		u.Settings = settings
		u.UpdatedAt = time.Now().UTC()
	})
	if err != nil {
		return models.Settings{}, err
	}
	return user.Settings, nil
}

// RegisterDevice records a push notification token for the user
func (s *ProfileService) RegisterDevice(id string, device models.Device) (*models.Device, error) {
	device.UserID = id
	device.Token = strings.TrimSpace(device.Token)
	if err := models.ValidateStruct(&device); err != nil {
		return nil, validationError(err)
	}
	if _, err := s.users.GetByID(id); err != nil {
		return nil, notFound(err, "user")
	}
	if err := s.devices.Register(&device); err != nil {
		return nil, errors.Wrap(err, "failed to register device")
	}
	return &device, nil
}

// RemoveDevice forgets a push notification token
func (s *ProfileService) RemoveDevice(id, token string) error {
	if err := s.devices.Delete(id, token); err != nil {
		return notFound(err, "device")
	}
	return nil
}

func (s *ProfileService) modify(id string, change func(*models.User)) (*models.User, error) {
	user, err := s.users.GetByID(id)
	if err != nil {
		return nil, notFound(err, "user")
	}
	change(user)
	if err := s.users.Update(user); err != nil {
		return nil, notFound(err, "user")
	}

	s.hub.Publish(events.Event{
		Type:    events.UserUpdated,
		Topic:   events.TopicPosts,
		ActorID: id,
		Payload: user.Public(),
	})
	return user.Sanitized(), nil
}
