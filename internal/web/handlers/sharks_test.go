package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/reefwatch/sharkmark/internal/catalog"
	"github.com/reefwatch/sharkmark/internal/database"
	"github.com/reefwatch/sharkmark/internal/database/mock"
	"github.com/reefwatch/sharkmark/internal/naming"
)

func testSharksHandler(sharks *mock.MockSharkRepository) *SharksHandler {
	return NewSharksHandler(sharks, naming.NewSuggester(nil))
}

func TestSharksHandler_List(t *testing.T) {
	sharks := mock.NewMockSharkRepository()
	sharks.AddShark(database.Shark{ID: "s1", DisplayName: "Luna", NameStatus: database.NameStatusConfirmed})
	sharks.AddShark(database.Shark{ID: "s2", DisplayName: "Lavender", NameStatus: database.NameStatusTemporary})
	sharks.AddShark(database.Shark{ID: "s3", DisplayName: "Ginny", NameStatus: database.NameStatusConfirmed})

	handler := testSharksHandler(sharks)

	req := httptest.NewRequest("GET", "/api/v1/sharks?q=l", nil)
	recorder := httptest.NewRecorder()

	handler.List(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var result []catalog.Shark
	parseJSONResponse(t, recorder, &result)

	if len(result) != 2 {
		t.Fatalf("expected 2 sharks for q=l, got %d", len(result))
	}
	names := []string{result[0].DisplayName, result[1].DisplayName}
	sort.Strings(names)
	if names[0] != "Lavender" || names[1] != "Luna" {
		t.Errorf("unexpected names: %v", names)
	}
}

func TestSharksHandler_List_Empty(t *testing.T) {
	handler := testSharksHandler(mock.NewMockSharkRepository())

	req := httptest.NewRequest("GET", "/api/v1/sharks", nil)
	recorder := httptest.NewRecorder()

	handler.List(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	if body := recorder.Body.String(); body != "[]\n" {
		t.Errorf("expected empty JSON array, got %q", body)
	}
}

func TestSharksHandler_List_RepositoryError(t *testing.T) {
	sharks := mock.NewMockSharkRepository()
	sharks.ListError = errors.New("database down")

	handler := testSharksHandler(sharks)

	req := httptest.NewRequest("GET", "/api/v1/sharks", nil)
	recorder := httptest.NewRecorder()

	handler.List(recorder, req)

	assertStatusCode(t, recorder, http.StatusInternalServerError)
	assertJSONError(t, recorder, "failed to list sharks")
}

func TestSharksHandler_Create(t *testing.T) {
	sharks := mock.NewMockSharkRepository()
	handler := testSharksHandler(sharks)

	body := bytes.NewBufferString(`{"display_name": "Hermione", "name_status": "confirmed"}`)
	req := httptest.NewRequest("POST", "/api/v1/sharks", body)
	recorder := httptest.NewRecorder()

	handler.Create(recorder, req)

	assertStatusCode(t, recorder, http.StatusCreated)

	var shark catalog.Shark
	parseJSONResponse(t, recorder, &shark)
	if shark.DisplayName != "Hermione" {
		t.Errorf("expected display name Hermione, got %s", shark.DisplayName)
	}
	if shark.NameStatus != catalog.NameStatusConfirmed {
		t.Errorf("expected name status confirmed, got %s", shark.NameStatus)
	}
	if shark.ID == "" {
		t.Error("expected a generated shark id")
	}
}

func TestSharksHandler_Create_DefaultsToTemporary(t *testing.T) {
	sharks := mock.NewMockSharkRepository()
	handler := testSharksHandler(sharks)

	body := bytes.NewBufferString(`{"display_name": "Nameless"}`)
	req := httptest.NewRequest("POST", "/api/v1/sharks", body)
	recorder := httptest.NewRecorder()

	handler.Create(recorder, req)

	assertStatusCode(t, recorder, http.StatusCreated)

	var shark catalog.Shark
	parseJSONResponse(t, recorder, &shark)
	if shark.NameStatus != catalog.NameStatusTemporary {
		t.Errorf("expected name status temporary, got %s", shark.NameStatus)
	}
}

func TestSharksHandler_Create_EmptyName(t *testing.T) {
	handler := testSharksHandler(mock.NewMockSharkRepository())

	body := bytes.NewBufferString(`{"display_name": ""}`)
	req := httptest.NewRequest("POST", "/api/v1/sharks", body)
	recorder := httptest.NewRecorder()

	handler.Create(recorder, req)

	assertStatusCode(t, recorder, http.StatusUnprocessableEntity)
	assertJSONError(t, recorder, "display_name must not be empty")
}

func TestSharksHandler_Create_InvalidJSON(t *testing.T) {
	handler := testSharksHandler(mock.NewMockSharkRepository())

	req := httptest.NewRequest("POST", "/api/v1/sharks", bytes.NewBufferString(`{invalid}`))
	recorder := httptest.NewRecorder()

	handler.Create(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "invalid request body")
}

func TestSharksHandler_SuggestName(t *testing.T) {
	sharks := mock.NewMockSharkRepository()
	handler := testSharksHandler(sharks)

	req := httptest.NewRequest("POST", "/api/v1/sharks/suggest-name", nil)
	recorder := httptest.NewRecorder()

	handler.SuggestName(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var result map[string]string
	parseJSONResponse(t, recorder, &result)
	if result["name"] == "" {
		t.Error("expected a suggested name")
	}
}

func TestSharksHandler_SuggestName_SkipsUsedNames(t *testing.T) {
	sharks := mock.NewMockSharkRepository()
	sharks.AddShark(database.Shark{ID: "s1", DisplayName: "Hermione"})

	handler := testSharksHandler(sharks)

	req := httptest.NewRequest("POST", "/api/v1/sharks/suggest-name", nil)
	recorder := httptest.NewRecorder()

	handler.SuggestName(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var result map[string]string
	parseJSONResponse(t, recorder, &result)
	if result["name"] == "Hermione" {
		t.Error("suggested name must not already be in use")
	}
}
