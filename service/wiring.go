package service

import (
	"context"
	"log"
	"net/http"

	"forumhub/app/config"
	"forumhub/app/notify"
	"forumhub/app/repositories"
	"forumhub/app/storage"

	"github.com/pkg/errors"
)

func openStore(cfg *config.Config) (*repositories.Store, error) {
	return repositories.OpenStore(repositories.Options{
		Driver:      cfg.StorageDriver,
		BadgerPath:  cfg.DataDir,
		DatabaseURL: cfg.DatabaseURL,
	})
}

// newBlobStore returns the configured blob store and, for local storage,
// the handler serving it
func newBlobStore(cfg *config.Config) (storage.BlobStore, http.Handler, error) {
	switch cfg.BlobDriver {
	case config.BlobS3:
		s3, err := storage.NewS3Store(storage.S3Options{
			Bucket:   cfg.S3Bucket,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
		})
		if err != nil {
			return nil, nil, err
		}
		return s3, nil, nil
	case config.BlobLocal:
		local, err := storage.NewLocalStore(cfg.MediaDir, cfg.PublicURL)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("[storage] serving media from %s", cfg.MediaDir)
		return local, local.Handler(), nil
	default:
		return nil, nil, errors.Errorf("unknown blob driver %q", cfg.BlobDriver)
	}
}

// newNotifier sends through Firebase when credentials are configured and
// only logs otherwise
func newNotifier(ctx context.Context, cfg *config.Config, devices repositories.DeviceRepository) (notify.Notifier, error) {
	if cfg.FirebaseCreds == "" {
		log.Println("[notify] no firebase credentials, notifications are logged only")
		return notify.LogNotifier{}, nil
	}
	return notify.NewFCMNotifier(ctx, cfg.FirebaseCreds, devices)
}

func requireBadger(cfg *config.Config) error {
	if cfg.StorageDriver != config.StorageBadger {
		return errors.Errorf("this command needs the badger storage driver, not %q", cfg.StorageDriver)
	}
	return nil
}
