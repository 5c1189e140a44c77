// Package s3 provides an Amazon S3 backed snapshot store.
//
// Snapshots released under a store-backed mode can be spilled to S3, freeing
// local memory entirely between release and materialize:
//
//	cfg, _ := config.LoadDefaultConfig(ctx)
//	store := s3.NewStore(awss3.NewFromConfig(cfg), "my-bucket", "snapshots/")
//
// Uploads go through the AWS upload manager, so large snapshots are written
// as multipart uploads without buffering the whole payload twice.
package s3
