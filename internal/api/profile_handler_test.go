package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"jobtrail/internal/database"
	"jobtrail/internal/enrich"
)

func TestGetProfile_CreatesEmptyRow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	user := seedUser(t, db, "profile-lazy")
	h := NewProfileHandler(db, nil, nil, 0)

	w := httptest.NewRecorder()
	c := testContext(w, http.MethodGet, "/v1/profile", nil, user.ID)
	h.GetProfile(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}

	var count int64
	db.Model(&database.Profile{}).Where("user_id = ?", user.ID).Count(&count)
	if count != 1 {
		t.Fatalf("profile row not created on first read, count=%d", count)
	}

	// A second read reuses the row.
	w = httptest.NewRecorder()
	c = testContext(w, http.MethodGet, "/v1/profile", nil, user.ID)
	h.GetProfile(c)
	db.Model(&database.Profile{}).Where("user_id = ?", user.ID).Count(&count)
	if count != 1 {
		t.Fatalf("duplicate profile rows: %d", count)
	}
}

func TestUpdateContact_AbsentFieldsRetained(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	user := seedUser(t, db, "profile-contact")
	h := NewProfileHandler(db, nil, nil, 0)

	put := func(payload map[string]any) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		c := testContext(w, http.MethodPut, "/v1/profile/contact", jsonBody(t, payload), user.ID)
		h.UpdateContact(c)
		return w
	}

	first := put(map[string]any{
		"name":  "Jamie Rivera",
		"email": "jamie@example.com",
		"phone": "+1 555 0100",
	})
	if first.Code != http.StatusOK {
		t.Fatalf("first update: expected 200 got %d body=%s", first.Code, first.Body.String())
	}

	// Phone is absent from the second request and must survive.
	second := put(map[string]any{
		"name":     "Jamie Rivera",
		"email":    "jamie@example.com",
		"location": "Lisbon",
	})
	if second.Code != http.StatusOK {
		t.Fatalf("second update: expected 200 got %d", second.Code)
	}

	var profile database.Profile
	if err := db.Where("user_id = ?", user.ID).First(&profile).Error; err != nil {
		t.Fatalf("load profile: %v", err)
	}
	if profile.Phone != "+1 555 0100" {
		t.Fatalf("phone lost on partial update: %q", profile.Phone)
	}
	if profile.Location != "Lisbon" {
		t.Fatalf("location not applied: %q", profile.Location)
	}

	// An explicit empty string clears.
	third := put(map[string]any{
		"name":  "Jamie Rivera",
		"email": "jamie@example.com",
		"phone": "",
	})
	if third.Code != http.StatusOK {
		t.Fatalf("third update: expected 200 got %d", third.Code)
	}
	if err := db.Where("user_id = ?", user.ID).First(&profile).Error; err != nil {
		t.Fatalf("reload profile: %v", err)
	}
	if profile.Phone != "" {
		t.Fatalf("explicit empty phone not applied: %q", profile.Phone)
	}
}

func TestUpdateContact_RequiresNameAndEmail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	user := seedUser(t, db, "profile-contact-required")
	h := NewProfileHandler(db, nil, nil, 0)

	w := httptest.NewRecorder()
	c := testContext(w, http.MethodPut, "/v1/profile/contact", jsonBody(t, map[string]any{"email": "a@b.c"}), user.ID)
	h.UpdateContact(c)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d body=%s", w.Code, w.Body.String())
	}
}

func TestReplaceSkills_OrderAndValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	user := seedUser(t, db, "profile-skills")
	h := NewProfileHandler(db, nil, nil, 0)

	w := httptest.NewRecorder()
	c := testContext(w, http.MethodPut, "/v1/profile/skills", jsonBody(t, map[string]any{
		"skills": []map[string]string{
			{"name": "Go", "category": database.SkillTechnical},
			{"name": "PostgreSQL", "category": database.SkillTechnical},
			{"name": "Mentoring", "category": database.SkillSoft},
		},
	}), user.ID)
	h.ReplaceSkills(c)
	c.Writer.WriteHeaderNow()

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d body=%s", w.Code, w.Body.String())
	}

	var skills []database.Skill
	if err := db.Order("position ASC").Find(&skills).Error; err != nil {
		t.Fatalf("load skills: %v", err)
	}
	if len(skills) != 3 {
		t.Fatalf("expected 3 skills, got %d", len(skills))
	}
	if skills[0].Name != "Go" || skills[0].Position != 0 || skills[2].Name != "Mentoring" {
		t.Fatalf("positions do not follow request order: %+v", skills)
	}

	// Replacing again drops the previous set entirely.
	w = httptest.NewRecorder()
	c = testContext(w, http.MethodPut, "/v1/profile/skills", jsonBody(t, map[string]any{
		"skills": []map[string]string{{"name": "Rust", "category": database.SkillTechnical}},
	}), user.ID)
	h.ReplaceSkills(c)

	var count int64
	db.Model(&database.Skill{}).Count(&count)
	if count != 1 {
		t.Fatalf("old skills survived replacement: %d", count)
	}

	// Unknown category is rejected before any write.
	w = httptest.NewRecorder()
	c = testContext(w, http.MethodPut, "/v1/profile/skills", jsonBody(t, map[string]any{
		"skills": []map[string]string{{"name": "Juggling", "category": "hobby"}},
	}), user.ID)
	h.ReplaceSkills(c)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
}

func TestEnrichProfile_ResultNotPersisted(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	user := seedUser(t, db, "profile-enrich")
	fake := &fakeEnricher{result: &enrich.Result{Name: "Jamie", GitHubURL: "https://github.com/jamie", Skills: []string{"Go"}}}
	h := NewProfileHandler(db, fake, newFakeRateCounter(), 5)

	w := httptest.NewRecorder()
	c := testContext(w, http.MethodPost, "/v1/profile/enrich", jsonBody(t, map[string]any{
		"profileUrl": "https://github.com/jamie",
	}), user.ID)
	h.EnrichProfile(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	var resp enrich.Result
	decodeJSON(t, w, &resp)
	if resp.Name != "Jamie" || len(resp.Skills) != 1 {
		t.Fatalf("unexpected enrichment response: %+v", resp)
	}

	// Advisory only: nothing is written until the client applies it.
	var profile database.Profile
	if err := db.Where("user_id = ?", user.ID).First(&profile).Error; err == nil {
		if profile.Name != "" || profile.GitHubURL != "" {
			t.Fatalf("enrichment persisted without apply: %+v", profile)
		}
	}
}

func TestEnrichProfile_RateLimited(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	user := seedUser(t, db, "profile-enrich-limit")
	fake := &fakeEnricher{result: &enrich.Result{}}
	counter := newFakeRateCounter()
	h := NewProfileHandler(db, fake, counter, 2)

	post := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		c := testContext(w, http.MethodPost, "/v1/profile/enrich", jsonBody(t, map[string]any{
			"profileUrl": "https://github.com/jamie",
		}), user.ID)
		h.EnrichProfile(c)
		return w
	}

	for i := 0; i < 2; i++ {
		if w := post(); w.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200 got %d", i, w.Code)
		}
	}

	w := post()
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after limit, got %d body=%s", w.Code, w.Body.String())
	}
	if fake.calls != 2 {
		t.Fatalf("upstream called past the limit: %d", fake.calls)
	}

	key := fmt.Sprintf("%s%d", enrichRateLimitKeyPrefix, user.ID)
	if counter.counts[key] != 3 {
		t.Fatalf("unexpected counter value %d", counter.counts[key])
	}
}

func TestEnrichProfile_ErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	user := seedUser(t, db, "profile-enrich-errors")

	cases := []struct {
		err  error
		want int
	}{
		{enrich.ErrUnrecognizedURL, http.StatusBadRequest},
		{errors.New("github said 503"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		h := NewProfileHandler(db, &fakeEnricher{err: tc.err}, nil, 0)
		w := httptest.NewRecorder()
		c := testContext(w, http.MethodPost, "/v1/profile/enrich", jsonBody(t, map[string]any{
			"profileUrl": "https://example.com/someone",
		}), user.ID)
		h.EnrichProfile(c)
		if w.Code != tc.want {
			t.Fatalf("err %v: expected %d got %d body=%s", tc.err, tc.want, w.Code, w.Body.String())
		}
		// Upstream detail never reaches the client.
		if tc.want == http.StatusInternalServerError && w.Body.String() != `{"error":"enrichment failed"}` {
			t.Fatalf("upstream detail leaked: %s", w.Body.String())
		}
	}
}
