package minio

import (
	"bytes"
	"context"
	"io"
	"path"
	"regexp"
	"time"

	"github.com/DRSN-tech/storefront-backend/internal/cfg"
	"github.com/DRSN-tech/storefront-backend/pkg/e"
	"github.com/google/uuid"
	"github.com/jimlawless/whereami"
	"github.com/minio/minio-go/v7"
)

// NotificationsPrefix — префикс ключей архива, на него же вешается правило истечения.
const NotificationsPrefix = "payment-notifications"

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

type objectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader,
		objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// NotificationRepo сохраняет сырые тела уведомлений платёжного провайдера в MinIO.
// Архив нужен для разбора спорных платежей, на обработку уведомления он не влияет.
type NotificationRepo struct {
	mc  objectPutter
	cfg *cfg.MinIOCfg
	now func() time.Time
}

func NewNotificationRepo(mc *minio.Client, cfg *cfg.MinIOCfg) *NotificationRepo {
	return newNotificationRepo(mc, cfg)
}

func newNotificationRepo(mc objectPutter, cfg *cfg.MinIOCfg) *NotificationRepo {
	return &NotificationRepo{
		mc:  mc,
		cfg: cfg,
		now: time.Now,
	}
}

// Save кладёт тело уведомления в объект payment-notifications/<дата>/<reference>-<uuid>.json.
// Повторные доставки не перезаписывают друг друга.
func (n *NotificationRepo) Save(ctx context.Context, reference string, body []byte) error {
	key := n.objectKey(reference)

	_, err := n.mc.PutObject(ctx, n.cfg.BucketName, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func (n *NotificationRepo) objectKey(reference string) string {
	ref := unsafeKeyChars.ReplaceAllString(reference, "_")
	if ref == "" {
		ref = "unknown"
	}

	return path.Join(
		NotificationsPrefix,
		n.now().UTC().Format("2006-01-02"),
		ref+"-"+uuid.NewString()+".json",
	)
}
