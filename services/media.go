package services

import (
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	appContext "github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"

	"github.com/minevote/api/dto"
	"github.com/minevote/api/shared"
)

// MediaService handles server banner images: validated, pushed to object
// storage and linked on the listing.
type MediaService struct {
	appContext.DefaultService

	postgres *PostgresService
	minioSvc *MinIOService
	baseURL  string
}

const MEDIA_SVC = "media_svc"

const maxBannerSize = 2 * 1024 * 1024

func (svc MediaService) Id() string {
	return MEDIA_SVC
}

func (svc *MediaService) Configure(ctx *appContext.Context) error {
	svc.baseURL = os.Getenv("BASE_URL")
	if svc.baseURL == "" {
		svc.baseURL = "http://localhost:8000"
	}

	return svc.DefaultService.Configure(ctx)
}

func (svc *MediaService) Start() error {
	svc.postgres = svc.Service(POSTGRES_SVC).(*PostgresService)
	svc.minioSvc = svc.Service(MINIO_SVC).(*MinIOService)
	return nil
}

// UploadServerBanner stores a banner image and sets it on the listing.
func (svc *MediaService) UploadServerBanner(serverID string, file *multipart.FileHeader) (*dto.MediaUploadResponse, error) {
	server, err := svc.postgres.GetServer(serverID)
	if err != nil {
		return nil, shared.NewNotFoundError(err, "server not found")
	}

	if !svc.isValidImageFile(file.Filename) {
		return nil, shared.NewBadRequestError(nil, "Invalid image file format. Supported: JPG, PNG, WEBP, GIF")
	}

	if file.Size > maxBannerSize {
		return nil, shared.NewBadRequestError(nil, "Banner file too large. Maximum size: 2MB")
	}

	ext := filepath.Ext(file.Filename)
	objectName := fmt.Sprintf("banners/%s_%d%s", serverID, time.Now().Unix(), ext)

	src, err := file.Open()
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to open uploaded file")
	}
	defer src.Close()

	uploadInfo, err := svc.minioSvc.UploadFile(objectName, src, file.Size, file.Header.Get("Content-Type"))
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to upload file to storage")
	}

	fileURL, err := svc.minioSvc.GetFileURL(objectName, 24*time.Hour)
	if err != nil {
		log.Printf("Failed to generate presigned URL: %v", err)
		fileURL = fmt.Sprintf("%s/%s/%s", svc.baseURL, svc.minioSvc.GetBucketName(), objectName)
	}

	oldBanner := bannerObjectName(server.BannerURL)

	server.BannerURL = fileURL
	if err := svc.postgres.UpdateServer(server); err != nil {
		svc.minioSvc.DeleteFile(objectName)
		return nil, shared.NewInternalError(err, "Failed to store banner reference")
	}

	if oldBanner != "" && oldBanner != objectName {
		if err := svc.minioSvc.DeleteFile(oldBanner); err != nil {
			log.Printf("Failed to delete previous banner %s: %v", oldBanner, err)
		}
	}

	log.Printf("Successfully uploaded banner for server %s: %s", serverID, uploadInfo.Key)

	return &dto.MediaUploadResponse{
		URL:        fileURL,
		ObjectName: objectName,
		Size:       file.Size,
		UploadedAt: time.Now().UTC(),
	}, nil
}

// DeleteServerBanner removes the banner from storage and the listing.
func (svc *MediaService) DeleteServerBanner(serverID string) error {
	server, err := svc.postgres.GetServer(serverID)
	if err != nil {
		return shared.NewNotFoundError(err, "server not found")
	}

	if object := bannerObjectName(server.BannerURL); object != "" {
		if err := svc.minioSvc.DeleteFile(object); err != nil {
			log.Printf("Failed to delete banner %s: %v", object, err)
		}
	}

	server.BannerURL = ""
	if err := svc.postgres.UpdateServer(server); err != nil {
		return shared.NewInternalError(err, "Failed to clear banner reference")
	}
	return nil
}

// bannerObjectName recovers the storage object key from a banner URL.
// Presigned URLs carry the key in the path after the bucket segment.
func bannerObjectName(bannerURL string) string {
	if bannerURL == "" {
		return ""
	}
	idx := strings.Index(bannerURL, "/banners/")
	if idx < 0 {
		return ""
	}
	object := bannerURL[idx+1:]
	if q := strings.Index(object, "?"); q >= 0 {
		object = object[:q]
	}
	return object
}

func (svc *MediaService) isValidImageFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	validExts := []string{".jpg", ".jpeg", ".png", ".webp", ".gif"}

	for _, validExt := range validExts {
		if ext == validExt {
			return true
		}
	}
	return false
}
