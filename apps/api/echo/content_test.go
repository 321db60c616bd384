package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/utulivu/core/content"
	"github.com/trezcool/utulivu/core/mood"
	"github.com/trezcool/utulivu/testutil"
)

func Test_contentApi(t *testing.T) {
	env := setup(t)
	sch := testutil.CreateSchool(t, env.schoolRepo, "Kilimani High", "KLM")
	superToken := getToken(t, env.conf, testutil.CreateSuperAdmin(t, env.usrRepo, "root"))
	_, stToken := env.studentToken(t, "Amani Njeri", "S001", sch.ID)

	rec := env.do(http.MethodPost, "/api/content/categories", superToken, marchallObj(t, map[string]string{"name": "Breathing", "kind": content.KindMeditation}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var cat content.Category
	decode(t, rec, &cat)

	newResource := func(title string, published bool, tags ...string) content.Resource {
		t.Helper()
		rec := env.do(http.MethodPost, "/api/content/resources", superToken, marchallObj(t, map[string]interface{}{
			"kind":         content.KindMeditation,
			"title":        title,
			"category_id":  cat.ID,
			"url":          "https://cdn.utulivu.test/" + title + ".mp3",
			"mood_tags":    tags,
			"is_published": published,
		}))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var r content.Resource
		decode(t, rec, &r)
		return r
	}

	calm := newResource("box-breathing", true, mood.Bad, mood.Awful)
	draft := newResource("draft", false)

	runHTTPTests(t, env, []httpTest{
		{
			name: "Students cannot publish", method: http.MethodPost, path: "/api/content/categories", token: stToken,
			body: marchallObj(t, map[string]string{"name": "Sneaky", "kind": content.KindMusic}), wantCode: http.StatusForbidden,
		},
		{name: "Categories", path: "/api/content/categories", token: stToken, wantCode: http.StatusOK, wantData: marchallList(t, cat)},
		{name: "Categories by kind", path: "/api/content/categories?kind=music", token: stToken, wantCode: http.StatusOK, wantData: marchallList(t)},
		{name: "Published resource", path: "/api/content/resources/" + calm.ID, token: stToken, wantCode: http.StatusOK, wantData: marchallObj(t, calm)},
		{name: "Unpublished resource is hidden", path: "/api/content/resources/" + draft.ID, token: stToken, wantCode: http.StatusNotFound},
		{name: "Unpublished resource for super admins", path: "/api/content/resources/" + draft.ID, token: superToken, wantCode: http.StatusOK},
		{
			name: "Category in use", method: http.MethodDelete, path: "/api/content/categories/" + cat.ID, token: superToken,
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: content.ErrCategoryInUse.Error()}),
		},
		{
			name: "Duplicate category", method: http.MethodPost, path: "/api/content/categories", token: superToken,
			body: marchallObj(t, map[string]string{"name": "Breathing", "kind": content.KindMeditation}), wantCode: http.StatusBadRequest,
		},
	})

	t.Run("Listing", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/content/resources", stToken)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{calm.ID}, ids(t, rec))

		rec = env.do(http.MethodGet, "/api/content/resources", superToken)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.ElementsMatch(t, []string{calm.ID, draft.ID}, ids(t, rec))

		rec = env.do(http.MethodGet, "/api/content/resources?mood=great", superToken)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, ids(t, rec))
	})

	t.Run("Recommendations", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/students/recommendations?mood=bad", stToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, []string{calm.ID}, ids(t, rec))

		// nothing tagged: the latest published resources
		rec = env.do(http.MethodGet, "/api/students/recommendations?mood=great", stToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, []string{calm.ID}, ids(t, rec))
	})

	t.Run("Publish then delete", func(t *testing.T) {
		rec := env.do(http.MethodPut, "/api/content/resources/"+draft.ID, superToken, marchallObj(t, map[string]bool{"is_published": true}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		rec = env.do(http.MethodGet, "/api/content/resources/"+draft.ID, stToken)
		assert.Equal(t, http.StatusOK, rec.Code)

		for _, r := range []content.Resource{calm, draft} {
			rec = env.do(http.MethodDelete, "/api/content/resources/"+r.ID, superToken)
			require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
		}
		rec = env.do(http.MethodDelete, "/api/content/categories/"+cat.ID, superToken)
		assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	})
}
