package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap_MatchesSentinelAndCause(t *testing.T) {
	cause := errors.New("quota exceeded")
	err := Wrap(StageEmbed, ErrEmbedding, cause)

	assert.ErrorIs(t, err, ErrEmbedding)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrVectorStore)
	assert.Equal(t, StageEmbed, StageOf(err))
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestWrap_NilCause(t *testing.T) {
	err := Wrap(StageChunk, ErrEmptyDocument, nil)

	assert.ErrorIs(t, err, ErrEmptyDocument)
	assert.Equal(t, "chunk: no chunks created from document", err.Error())
}

func TestWrap_DoesNotDoubleWrapSameSentinel(t *testing.T) {
	inner := Wrap(StageUpsert, ErrVectorStore, errors.New("timeout"))
	outer := Wrap(StageUpsert, ErrVectorStore, inner)

	assert.Same(t, inner, outer)
}

func TestStageOf_PlainError(t *testing.T) {
	assert.Equal(t, "", StageOf(errors.New("plain")))
}
