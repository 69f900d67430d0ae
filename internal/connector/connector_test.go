package connector

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectKind(t *testing.T) {
	require.Equal(t, DocumentStore, DetectKind("mongodb://localhost:27017/orders"))
	require.Equal(t, DocumentStore, DetectKind("mongodb+srv://cluster0.example.net/orders"))
	require.Equal(t, Relational, DetectKind("postgres://localhost:5432/orders"))
	require.Equal(t, Relational, DetectKind("mysql://localhost:3306/orders"))
}

func TestKindString(t *testing.T) {
	require.Equal(t, "document-store", DocumentStore.String())
	require.Equal(t, "relational", Relational.String())
	require.Equal(t, "unknown", Unknown.String())
}
