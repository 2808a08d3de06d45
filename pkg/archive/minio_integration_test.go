package archive

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/doms/pkg/config"
	"github.com/ajitpratap0/doms/pkg/testutil"
)

// TestMinioSinkIntegration uploads to a live MinIO server, e.g.
//
//	docker run -p 9000:9000 minio/minio server /data
//	DOMS_TEST_MINIO_ENDPOINT=localhost:9000 go test ./pkg/archive -run Integration
func TestMinioSinkIntegration(t *testing.T) {
	testutil.IntegrationTest(t)
	endpoint := testutil.RequireEnv(t, "DOMS_TEST_MINIO_ENDPOINT")

	cfg := config.ArchiveConfig{
		Type:      TypeMinio,
		Endpoint:  endpoint,
		Bucket:    "doms-integration",
		Prefix:    "matchups",
		AccessKey: envOr("DOMS_TEST_MINIO_ACCESS_KEY", "minioadmin"),
		SecretKey: envOr("DOMS_TEST_MINIO_SECRET_KEY", "minioadmin"),
	}
	ctx := testutil.TestContext(t)

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds: credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
	})
	require.NoError(t, err)
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}))
	}

	sink, err := New(ctx, cfg, testutil.TestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })

	obj := &Object{
		Name:        testutil.SampleExecutionID + ".json",
		Data:        []byte(testutil.SampleDocument),
		ContentType: "application/json",
		Metadata:    map[string]string{"execution_id": testutil.SampleExecutionID},
	}
	location, err := sink.Put(ctx, obj)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(location, "matchups/"+obj.Name), location)

	stored, err := client.GetObject(context.Background(), cfg.Bucket, "matchups/"+obj.Name, minio.GetObjectOptions{})
	require.NoError(t, err)
	defer stored.Close()
	info, err := stored.Stat()
	require.NoError(t, err)
	require.Equal(t, int64(len(obj.Data)), info.Size)
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
