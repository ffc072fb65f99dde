package storage_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/storage"
	"github.com/input-output-hk/catalyst-forge-libs/storage/errors"
	"github.com/input-output-hk/catalyst-forge-libs/storage/s3types"
)

func ExampleClient_DownloadData() {
	ctx := context.Background()

	client, err := storage.New(
		storage.WithBucket("media-bucket"),
		storage.WithIdentityID("user-42"),
	)
	if err != nil {
		log.Fatal(err)
	}

	t, err := client.DownloadData(ctx, "avatar.png",
		storage.WithAccessLevel(s3types.AccessLevelPrivate),
		storage.WithDownloadProgressFunc(func(p s3types.TransferProgress) {
			fmt.Printf("%d/%d bytes\n", p.Transferred, p.Total)
		}),
	)
	if err != nil {
		log.Fatal(err)
	}

	// Give up after ten seconds.
	timer := time.AfterFunc(10*time.Second, func() { t.Cancel(nil) })
	defer timer.Stop()

	res, err := t.Result(ctx)
	switch {
	case errors.IsCanceled(err):
		fmt.Println("download canceled")
	case err != nil:
		log.Fatal(err)
	default:
		fmt.Printf("downloaded %d bytes of %s\n", len(res.Body), res.ContentType)
	}
}

func ExampleClient_UploadFile() {
	ctx := context.Background()

	client, err := storage.New(
		storage.WithBucket("media-bucket"),
		storage.WithIdentityID("user-42"),
		storage.WithDefaultAccessLevel(s3types.AccessLevelProtected),
	)
	if err != nil {
		log.Fatal(err)
	}

	t, err := client.UploadFile(ctx, "reports/q3.pdf", "/tmp/q3.pdf",
		storage.WithMetadata(map[string]string{"quarter": "3"}),
	)
	if err != nil {
		log.Fatal(err)
	}

	res, err := t.Result(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "upload failed (%s): %v\n", errors.CodeOf(err), err)
		return
	}
	fmt.Println("uploaded", res.Key, res.ETag)
}

func ExampleClient_GetURL() {
	ctx := context.Background()

	client, err := storage.New(storage.WithBucket("media-bucket"))
	if err != nil {
		log.Fatal(err)
	}

	// The URL never outlives the credentials that sign it, so ExpiresAt may
	// be earlier than requested.
	res, err := client.GetURL(ctx, "brochure.pdf",
		storage.WithExpiresIn(time.Hour),
		storage.WithValidateObjectExistence(true),
	)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(res.URL, "valid until", res.ExpiresAt.Format(time.RFC3339))
}
