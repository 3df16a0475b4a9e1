package artifact

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/sirupsen/logrus"

	"github.com/Nutonspeed/BN-Aura/internal/config"
)

const contentType = "application/octet-stream"

// BlobStore keeps artifacts in an Azure Blob Storage container under a
// name prefix.
type BlobStore struct {
	client    *azblob.Client
	container string
	prefix    string
	log       logrus.FieldLogger

	ensured bool
}

// NewBlobStore validates the connection string and creates the client. No
// request is made until the first Save or Load.
func NewBlobStore(cfg *config.StorageConfig, prefix string, log logrus.FieldLogger) (*BlobStore, error) {
	client, err := azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &BlobStore{
		client:    client,
		container: cfg.ContainerName,
		prefix:    prefix,
		log:       log.WithField("component", "artifact.blob"),
	}, nil
}

func (s *BlobStore) ensureContainer(ctx context.Context) error {
	if s.ensured {
		return nil
	}
	_, err := s.client.CreateContainer(ctx, s.container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return fmt.Errorf("create container %s: %w", s.container, err)
	}
	s.ensured = true
	s.log.WithField("container", s.container).Debug("storage container ready")
	return nil
}

func (s *BlobStore) Save(ctx context.Context, key string, data []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := s.ensureContainer(ctx); err != nil {
		return err
	}
	ct := contentType
	opts := &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &ct},
	}
	if _, err := s.client.UploadStream(ctx, s.container, s.name(key), bytes.NewReader(data), opts); err != nil {
		return fmt.Errorf("upload blob %s: %w", key, err)
	}
	return nil
}

func (s *BlobStore) Load(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	resp, err := s.client.DownloadStream(ctx, s.container, s.name(key), nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, fmt.Errorf("%s: %w", s.Location(key), ErrNotFound)
		}
		return nil, fmt.Errorf("download blob %s: %w", key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", key, err)
	}
	return data, nil
}

func (s *BlobStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	blobClient := s.client.
		ServiceClient().
		NewContainerClient(s.container).
		NewBlobClient(s.name(key))

	if _, err := blobClient.GetProperties(ctx, nil); err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("check blob existence %s: %w", key, err)
	}
	return true, nil
}

func (s *BlobStore) Location(key string) string {
	return fmt.Sprintf("azblob://%s/%s", s.container, s.name(key))
}

func (s *BlobStore) name(key string) string {
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}
