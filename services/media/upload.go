package media

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"path"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"seatrail/pkg/apperr"
	"seatrail/services/marketplace"
)

// MaxImageSize bounds uploaded images.
const MaxImageSize = 10 << 20

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// ImageAttacher is satisfied by *tours.Service.
type ImageAttacher interface {
	AddImage(ctx context.Context, actorID, tourID uuid.UUID, rawURL string, primary bool) (marketplace.TourImage, error)
}

// Uploader stores tour images in the media bucket and attaches them to their tour.
type Uploader struct {
	objects ObjectStore
	bucket  Bucket
	tours   ImageAttacher
	log     zerolog.Logger
}

func NewUploader(objects ObjectStore, bucket Bucket, tours ImageAttacher, log zerolog.Logger) (*Uploader, error) {
	if objects == nil {
		return nil, errors.New("object store is required")
	}
	if tours == nil {
		return nil, errors.New("tour service is required")
	}
	if err := bucket.validate(); err != nil {
		return nil, err
	}
	return &Uploader{objects: objects, bucket: bucket, tours: tours, log: log.With().Str("component", "media-upload").Logger()}, nil
}

// UploadTourImage stores data under tours/<tour>/images/ and records the image. The object
// is removed again when the tour rejects it.
func (u *Uploader) UploadTourImage(ctx context.Context, actorID, tourID uuid.UUID, data []byte, primary bool) (marketplace.TourImage, error) {
	if len(data) == 0 {
		return marketplace.TourImage{}, apperr.Invalid("image is empty")
	}
	if len(data) > MaxImageSize {
		return marketplace.TourImage{}, apperr.Invalid("image exceeds %d bytes", MaxImageSize)
	}
	contentType := http.DetectContentType(data)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return marketplace.TourImage{}, apperr.Invalid("unsupported image type %s", contentType)
	}

	sum := sha256.Sum256(data)
	key := path.Join("tours", tourID.String(), "images", uuid.NewString()+ext)
	if err := u.objects.PutObject(ctx, u.bucket.Name, key, contentType, bytes.NewReader(data), int64(len(data)), hex.EncodeToString(sum[:])); err != nil {
		return marketplace.TourImage{}, apperr.Wrap(err, apperr.KindInternal, "upload image")
	}

	img, err := u.tours.AddImage(ctx, actorID, tourID, u.bucket.URL(key), primary)
	if err != nil {
		if derr := u.objects.DeleteObjects(ctx, u.bucket.Name, []string{key}); derr != nil {
			u.log.Warn().Err(derr).Str("key", key).Msg("remove rejected upload")
		}
		return marketplace.TourImage{}, err
	}
	u.log.Info().Str("tour_id", tourID.String()).Str("key", key).Int("bytes", len(data)).Msg("tour image uploaded")
	return img, nil
}
