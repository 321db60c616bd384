package content_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/utulivu/core"
	"github.com/trezcool/utulivu/core/content"
	"github.com/trezcool/utulivu/core/mood"
	inmemdb "github.com/trezcool/utulivu/storage/database/inmem"
)

func resourceIDs(res []content.Resource) []string {
	ids := make([]string, 0, len(res))
	for _, r := range res {
		ids = append(ids, r.ID)
	}
	return ids
}

func TestService(t *testing.T) {
	ctx := context.Background()
	svc := content.NewService(inmemdb.NewContentRepository(inmemdb.Open()))

	breathing, err := svc.CreateCategory(ctx, content.NewCategory{Name: "Breathing", Kind: content.KindMeditation})
	require.NoError(t, err)

	newResource := func(title string, published bool, tags ...string) content.Resource {
		t.Helper()
		r, err := svc.CreateResource(ctx, content.NewResource{
			Kind:        content.KindMeditation,
			Title:       title,
			CategoryID:  breathing.ID,
			URL:         "https://cdn.utulivu.test/" + title + ".mp3",
			MoodTags:    tags,
			IsPublished: published,
		})
		require.NoError(t, err)
		return r
	}
	calm := newResource("box-breathing", true, mood.Awful, mood.Bad)
	sleep := newResource("body-scan", true, mood.Okay)
	draft := newResource("draft", false, mood.Bad)

	t.Run("category names are unique per kind", func(t *testing.T) {
		_, err := svc.CreateCategory(ctx, content.NewCategory{Name: "Breathing", Kind: content.KindMeditation})
		verr, ok := errors.Cause(err).(*core.ValidationError)
		require.True(t, ok, "got %v", err)
		assert.Equal(t, "name", verr.Fields[0].Field)

		_, err = svc.CreateCategory(ctx, content.NewCategory{Name: "Breathing", Kind: content.KindMusic})
		assert.NoError(t, err)
	})

	t.Run("resource kind must match its category", func(t *testing.T) {
		_, err := svc.CreateResource(ctx, content.NewResource{
			Kind: content.KindMusic, Title: "lofi", CategoryID: breathing.ID, URL: "https://cdn.utulivu.test/lofi.mp3",
		})
		verr, ok := errors.Cause(err).(*core.ValidationError)
		require.True(t, ok, "got %v", err)
		assert.Equal(t, "category_id", verr.Fields[0].Field)
	})

	t.Run("unpublished resources are hidden", func(t *testing.T) {
		_, err := svc.GetResource(ctx, draft.ID, false)
		assert.True(t, core.IsNotFound(err))
		r, err := svc.GetResource(ctx, draft.ID, true)
		require.NoError(t, err)
		assert.Equal(t, draft.ID, r.ID)
	})

	t.Run("recommendations", func(t *testing.T) {
		res, err := svc.Recommend(ctx, mood.Bad)
		require.NoError(t, err)
		assert.Equal(t, []string{calm.ID}, resourceIDs(res), "only published resources tagged for the mood")

		res, err = svc.Recommend(ctx, mood.Great)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{calm.ID, sleep.ID}, resourceIDs(res), "falls back to the latest published")
	})

	t.Run("category in use", func(t *testing.T) {
		err := svc.DeleteCategory(ctx, breathing.ID)
		assert.Equal(t, content.ErrCategoryInUse, errors.Cause(err))

		for _, r := range []content.Resource{calm, sleep, draft} {
			require.NoError(t, svc.DeleteResource(ctx, r.ID))
		}
		assert.NoError(t, svc.DeleteCategory(ctx, breathing.ID))
	})
}
