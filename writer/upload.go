package writer

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"

	"keeperstats/logger"
)

type objectPutter interface {
	Put(ctx context.Context, name string, data []byte, contentType string, metadata map[string]string) error
	URI(name string) string
}

// Artifact is a rendered output ready for upload.
type Artifact struct {
	Kind        string
	Extension   string
	ContentType string
	Data        []byte
}

// S3Uploader stores report artifacts under reports/<kind>/<yyyy>/<mm>/<dd>/.
type S3Uploader struct {
	store   objectPutter
	version string
	now     func() time.Time
	log     *logger.Log
}

func NewS3Uploader(store objectPutter, version string) *S3Uploader {
	return &S3Uploader{store: store, version: version, now: time.Now, log: logger.GetLogger()}
}

func (u *S3Uploader) key(a Artifact) string {
	now := u.now().UTC()
	name := fmt.Sprintf("%s_%s.%s", now.Format("20060102150405"), uuid.NewString(), a.Extension)
	return path.Join("reports", a.Kind, now.Format("2006"), now.Format("01"), now.Format("02"), name)
}

// Upload stores a and returns its s3:// URI.
func (u *S3Uploader) Upload(ctx context.Context, a Artifact) (string, error) {
	key := u.key(a)
	log := u.log.WithComponent("s3_uploader").WithFields(logger.Fields{
		"kind":      a.Kind,
		"key":       key,
		"data_size": len(a.Data),
	})

	metadata := map[string]string{
		"content-kind":        a.Kind,
		"keeperstats-version": u.version,
	}
	if err := u.store.Put(ctx, key, a.Data, a.ContentType, metadata); err != nil {
		log.WithError(err).WithEnv("S3_BUCKET").Error("failed to upload artifact")
		return "", err
	}

	uri := u.store.URI(key)
	log.WithFields(logger.Fields{"uri": uri}).Info("artifact uploaded")
	return uri, nil
}
