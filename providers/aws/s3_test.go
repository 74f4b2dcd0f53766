package aws

import (
	"testing"

	"github.com/stackrig-io/stackrig/internal/cloud"
	"github.com/stackrig-io/stackrig/internal/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitObjectKey(t *testing.T) {
	bucket, objectKey, err := splitObjectKey("deploy-dag-cafe0123/dags/sample_s3_dag.py")
	require.NoError(t, err)
	assert.Equal(t, "deploy-dag-cafe0123", bucket)
	// Only the first slash separates; the rest stays in the object key.
	assert.Equal(t, "dags/sample_s3_dag.py", objectKey)
}

func TestSplitObjectKey_RejectsMalformedKeys(t *testing.T) {
	for _, key := range []string{"no-slash", "bucket/", "/object", ""} {
		_, _, err := splitObjectKey(key)
		require.Error(t, err, "key %q", key)
		assert.True(t, cloud.IsKind(err, resource.ProviderError))
		assert.Contains(t, err.Error(), "must take the form bucket/objectKey")
	}
}

func TestObjectID(t *testing.T) {
	assert.Equal(t, "s3://data-bucket/test_data.csv", objectID("data-bucket", "test_data.csv"))
}
