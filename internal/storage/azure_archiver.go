package storage

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// ArtifactArchiver persists superseded baselines and diff artifacts to
// long-term storage. Archival is best-effort and retained indefinitely;
// archived artifacts are never read back by comparisons.
type ArtifactArchiver interface {
	Archive(ctx context.Context, name string, data []byte) error
}

type azureArchiver struct {
	client    *azblob.Client
	container string
}

// NewAzureArchiver creates an archiver backed by an Azure blob container.
func NewAzureArchiver(accountName, accountKey, container string) (ArtifactArchiver, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, err
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, err
	}

	return &azureArchiver{client: client, container: container}, nil
}

func (a *azureArchiver) Archive(ctx context.Context, name string, data []byte) error {
	_, err := a.client.UploadBuffer(ctx, a.container, name, data, nil)
	if err != nil {
		return fmt.Errorf("archive upload failed: %w", err)
	}
	return nil
}
