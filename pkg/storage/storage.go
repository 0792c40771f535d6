// Package storage reads submitted documents from, and archives validation
// reports to, Azure Blob Storage.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/JaimeStill/attest/pkg/lifecycle"
)

// System manages blob storage operations and lifecycle coordination.
type System interface {
	// Start registers a startup hook that ensures the container exists.
	Start(lc *lifecycle.Coordinator) error
	// Read returns the blob at key, failing with ErrTooLarge when it
	// exceeds limit bytes. Returns ErrNotFound if the blob does not exist.
	Read(ctx context.Context, key string, limit int64) (Object, error)
	// Archive writes data under the report prefix and returns the full key.
	Archive(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// Object is a downloaded blob.
type Object struct {
	Key         string
	ContentType string
	Data        []byte
}

type azure struct {
	client       *azblob.Client
	container    string
	reportPrefix string
	logger       *slog.Logger
}

// New creates a storage system from the given configuration. A connection
// string takes precedence over a service URL. No request is made until
// Start or an operation is called.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &azure{
		client:       client,
		container:    cfg.ContainerName,
		reportPrefix: cfg.ReportPrefix,
		logger:       logger.With("system", "storage"),
	}, nil
}

func newClient(cfg *Config) (*azblob.Client, error) {
	if cfg.ConnectionString != "" {
		return azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	}
	if cfg.ServiceURL == "" {
		return nil, ErrNotConfigured
	}

	cred, err := credential()
	if err != nil {
		return nil, fmt.Errorf("default credential: %w", err)
	}

	return azblob.NewClient(cfg.ServiceURL, cred, nil)
}

func credential() (azcore.TokenCredential, error) {
	return azidentity.NewDefaultAzureCredential(nil)
}

func (a *azure) Start(lc *lifecycle.Coordinator) error {
	a.logger.Info("starting storage system")

	lc.OnStartup("storage", func() {
		_, err := a.client.CreateContainer(lc.Context(), a.container, nil)
		if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
			a.logger.Error("storage container initialization failed", "error", err)
			return
		}

		a.logger.Info("storage container ready", "container", a.container)
	})

	return nil
}

func (a *azure) Read(ctx context.Context, key string, limit int64) (Object, error) {
	if err := validateKey(key); err != nil {
		return Object{}, err
	}

	resp, err := a.client.DownloadStream(ctx, a.container, key, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return Object{}, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return Object{}, fmt.Errorf("download blob %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.ContentLength != nil && limit > 0 && *resp.ContentLength > limit {
		return Object{}, fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, key, *resp.ContentLength)
	}

	data, err := readLimited(resp.Body, limit)
	if err != nil {
		return Object{}, fmt.Errorf("read blob %s: %w", key, err)
	}

	obj := Object{Key: key, Data: data}
	if resp.ContentType != nil {
		obj.ContentType = *resp.ContentType
	}

	a.logger.Debug("blob read", "key", key, "size", len(data))
	return obj, nil
}

func (a *azure) Archive(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	key := a.reportPrefix + name
	if err := validateKey(key); err != nil {
		return "", err
	}

	opts := &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{
			BlobContentType: &contentType,
		},
	}

	if _, err := a.client.UploadStream(ctx, a.container, key, bytes.NewReader(data), opts); err != nil {
		return "", fmt.Errorf("upload blob %s: %w", key, err)
	}

	return key, nil
}

// readLimited reads r fully, failing with ErrTooLarge past limit bytes.
// A non-positive limit reads without bound.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrTooLarge
	}
	return data, nil
}

func validateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if strings.Contains(key, "..") {
		return ErrInvalidKey
	}
	return nil
}
