package gcs

import (
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/require"
)

func TestNewValidatesConfig(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "b"})
	require.ErrorContains(t, err, "client is required")

	_, err = New(&storage.Client{}, Config{})
	require.ErrorContains(t, err, "bucket name is required")
}

func TestObjectName(t *testing.T) {
	t.Parallel()

	s, err := New(&storage.Client{}, Config{Bucket: "b", Prefix: "/crawls/"})
	require.NoError(t, err)

	name, err := s.objectName("output.xlsx")
	require.NoError(t, err)
	require.Equal(t, "crawls/output.xlsx", name)

	_, err = s.objectName(" ")
	require.Error(t, err)

	bare, err := New(&storage.Client{}, Config{Bucket: "b"})
	require.NoError(t, err)
	name, err = bare.objectName("uploads/a_b.csv")
	require.NoError(t, err)
	require.Equal(t, "uploads/a_b.csv", name)
}
