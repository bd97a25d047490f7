package gcsuploader

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportObjectName(t *testing.T) {
	at := time.Date(2026, 10, 17, 23, 30, 0, 0, time.FixedZone("X", -3*3600))
	assert.Equal(t, "exports/2026/10/18/abc.json", ExportObjectName(at, "abc"))
}

func TestObjectURIRoundTrip(t *testing.T) {
	uri := ObjectURI("ledger-exports", "exports/2026/10/17/abc.json")
	assert.Equal(t, "gs://ledger-exports/exports/2026/10/17/abc.json", uri)

	bucket, object, err := ParseURI(uri)
	require.NoError(t, err)
	assert.Equal(t, "ledger-exports", bucket)
	assert.Equal(t, "exports/2026/10/17/abc.json", object)
}

func TestParseURI_Invalid(t *testing.T) {
	for _, uri := range []string{"s3://b/o", "gs://bucket", "gs://bucket/"} {
		_, _, err := ParseURI(uri)
		assert.Error(t, err, uri)
	}
}
