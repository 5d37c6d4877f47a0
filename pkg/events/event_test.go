package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	evt := New(DocumentIngested, map[string]interface{}{
		KeyCollectionName: "docs",
		KeyChunkCount:     3,
	})

	data, err := Encode(evt, "instance-a")
	require.NoError(t, err)

	env, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, DocumentIngested, env.EventType())
	assert.Equal(t, "instance-a", env.Source)
	assert.NotEmpty(t, env.ID)
	assert.Equal(t, "docs", StringField(env, KeyCollectionName))
	assert.Equal(t, float64(3), env.Payload()[KeyChunkCount])
	assert.WithinDuration(t, evt.Timestamp(), env.Timestamp(), 0)
}

func TestDecode_Rejects(t *testing.T) {
	_, err := Decode([]byte("not json"))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"data":{}}`))
	assert.Error(t, err)
}

func TestStringField_Missing(t *testing.T) {
	evt := New(DocumentDeleted, map[string]interface{}{KeyDocumentID: 42})
	assert.Equal(t, "", StringField(evt, KeyDocumentID))
	assert.Equal(t, "", StringField(evt, KeyCollectionName))
}
