package media

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

var contentTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// ContentType returns the MIME type for an image file name.
func ContentType(filename string) (string, error) {
	ext := strings.ToLower(path.Ext(filename))
	ct, ok := contentTypes[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
	return ct, nil
}

// ObjectKey builds tenant/yyyy/mm/<uuid><ext> for a new upload.
func ObjectKey(tenant, filename string, now time.Time) (string, error) {
	if _, err := ContentType(filename); err != nil {
		return "", err
	}
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("%s/%04d/%02d/%s%s", tenant, now.Year(), int(now.Month()), uuid.NewString(), ext), nil
}

// OwnedBy reports whether key lives under the tenant prefix.
func OwnedBy(key, tenant string) bool {
	return tenant != "" && strings.HasPrefix(key, tenant+"/") && !strings.Contains(key, "..")
}
