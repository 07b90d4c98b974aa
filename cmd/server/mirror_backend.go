package main

import (
	"log"
	"os"
	"strconv"
	"strings"

	"logosim.ai/internal/persistence/objstore"
)

// openSnapshotMirror returns nil unless LOGOSIM_MIRROR_ENDPOINT is set.
// Object keys are paths relative to dataDir, so a mirrored snapshot lands
// at <prefix>/worlds/<id>/snapshots/<tick>.snap.zst.
func openSnapshotMirror(dataDir string, logger *log.Logger) (*objstore.Mirror, error) {
	endpoint := strings.TrimSpace(os.Getenv("LOGOSIM_MIRROR_ENDPOINT"))
	if endpoint == "" {
		return nil, nil
	}
	c, err := objstore.New(objstore.Config{
		Endpoint:        endpoint,
		Bucket:          os.Getenv("LOGOSIM_MIRROR_BUCKET"),
		Region:          os.Getenv("LOGOSIM_MIRROR_REGION"),
		AccessKeyID:     os.Getenv("LOGOSIM_MIRROR_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("LOGOSIM_MIRROR_SECRET_ACCESS_KEY"),
	})
	if err != nil {
		return nil, err
	}
	workers, _ := strconv.Atoi(os.Getenv("LOGOSIM_MIRROR_WORKERS"))
	return objstore.NewMirror(c, dataDir, objstore.MirrorOptions{
		Prefix:  os.Getenv("LOGOSIM_MIRROR_PREFIX"),
		Workers: workers,
		Logger:  logger,
	}), nil
}
