// Package storage provides cancelable, credential-aware object transfers on
// top of AWS SDK v2.
//
// Objects live in access-level namespaces of a single bucket: guest objects
// under "public/", protected objects under "protected/{identityId}/" and
// private objects under "private/{identityId}/". Each operation resolves
// the bucket, key prefix and credentials afresh, so rotated credentials are
// picked up without restarting the client.
//
// Key features:
//   - Downloads and uploads run as independent tasks that can be canceled
//     at any time; cancellation closes the in-flight connection
//   - Presigned URLs whose lifetime never outlives the signing credentials
//   - Object properties without a body transfer
//   - Errors classified as validation, resolution, service or canceled
//
// Example usage:
//
//	client, err := storage.New(
//	    storage.WithBucket("media"),
//	    storage.WithIdentityID(identityID),
//	)
//	if err != nil {
//	    return err
//	}
//
//	t, err := client.DownloadData(ctx, "avatar.png",
//	    storage.WithAccessLevel(s3types.AccessLevelPrivate),
//	    storage.WithDownloadProgressFunc(func(p s3types.TransferProgress) {
//	        fmt.Printf("%d/%d\n", p.Transferred, p.Total)
//	    }),
//	)
//	if err != nil {
//	    return err
//	}
//	result, err := t.Result(ctx)
//	if errors.IsCanceled(err) {
//	    // the caller gave up
//	}
package storage
