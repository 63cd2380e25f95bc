package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/go_quote/internal/domain"
)

type countingCache struct {
	NopCache
	last *Draft
	sets int
	err  error
}

func (c *countingCache) Set(_ context.Context, d *Draft) error {
	if c.err != nil {
		return c.err
	}
	c.sets++
	c.last = d
	return nil
}

func TestDraftWriter_SkipsUnchangedContent(t *testing.T) {
	cache := &countingCache{}
	w := NewDraftWriter(cache, "s-1")
	ctx := context.Background()
	sel := sampleDraft("s-1").Selection

	wrote, err := w.Save(ctx, sel, domain.FormStatusEditing)
	require.NoError(t, err)
	assert.True(t, wrote)

	sel.Attachments = []domain.Attachment{{Name: "brief.pdf", Size: 10, MimeType: "application/pdf"}}
	wrote, err = w.Save(ctx, sel, domain.FormStatusEditing)
	require.NoError(t, err)
	assert.False(t, wrote)

	sel.Technology = domain.TechnologyVue
	wrote, err = w.Save(ctx, sel, domain.FormStatusEditing)
	require.NoError(t, err)
	assert.True(t, wrote)
	assert.Equal(t, 2, cache.sets)
	assert.Nil(t, cache.last.Selection.Attachments)
}

func TestDraftWriter_StatusAndDevisNumberAreSaved(t *testing.T) {
	cache := &countingCache{}
	w := NewDraftWriter(cache, "s-1")
	ctx := context.Background()
	sel := sampleDraft("s-1").Selection

	_, err := w.Save(ctx, sel, domain.FormStatusEditing)
	require.NoError(t, err)

	w.SetDevisNumber("DEV-20260314-3FA85F")
	wrote, err := w.Save(ctx, sel, domain.FormStatusSubmittedOK)
	require.NoError(t, err)
	assert.True(t, wrote)
	assert.Equal(t, domain.FormStatusSubmittedOK, cache.last.Status)
	assert.Equal(t, "DEV-20260314-3FA85F", cache.last.DevisNumber)
	assert.False(t, cache.last.SavedAt.IsZero())
}

func TestDraftWriter_SeedCountsAsSaved(t *testing.T) {
	cache := &countingCache{}
	d := sampleDraft("s-1")
	d.Status = domain.FormStatusSubmittedOK
	d.DevisNumber = "DEV-20260314-ABCDEF"

	w := NewDraftWriter(cache, "s-1")
	w.Seed(d)

	wrote, err := w.Save(context.Background(), d.Selection, d.Status)
	require.NoError(t, err)
	assert.False(t, wrote)
	assert.Equal(t, "DEV-20260314-ABCDEF", w.DevisNumber())
}

func TestDraftWriter_FailedWriteIsRetried(t *testing.T) {
	cache := &countingCache{err: errors.New("redis down")}
	w := NewDraftWriter(cache, "s-1")
	ctx := context.Background()
	sel := sampleDraft("s-1").Selection

	_, err := w.Save(ctx, sel, domain.FormStatusEditing)
	assert.Error(t, err)

	cache.err = nil
	wrote, err := w.Save(ctx, sel, domain.FormStatusEditing)
	require.NoError(t, err)
	assert.True(t, wrote)
}
