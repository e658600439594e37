package handler

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"groupcast/internal/models"
	"groupcast/internal/testutil"
)

// groupRows builds the 11-column result of a group SELECT
func groupRows(id int, name string, useSMS, useEmail, useGroupMe, archived bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "owner_id", "name", "description", "image_url",
		"use_sms", "use_email", "use_groupme", "is_archived", "created_at", "updated_at",
	}).AddRow(id, testutil.TestOwner, name, "", nil, useSMS, useEmail, useGroupMe, archived, time.Now(), time.Now())
}

func TestAPI_CreateGroup_Success(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	defer db.Close()

	mock.ExpectQuery("INSERT INTO groups").
		WithArgs(testutil.TestOwner, "Book Club", "Monthly reads", nil, false, false, false).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(1, time.Now(), time.Now()))

	router := newTestRouter(db)
	resp := doRequest(t, router, "POST", "/groups", map[string]interface{}{
		"name":        "Book Club",
		"description": "Monthly reads",
	})

	testutil.AssertStatusCode(t, resp, http.StatusCreated)
	testutil.AssertJSONContentType(t, resp)

	var result models.Group
	testutil.ParseJSONResponse(t, resp, &result)
	testutil.AssertEqual(t, result.ID, 1)
	testutil.AssertEqual(t, result.Name, "Book Club")
	testutil.AssertEqual(t, result.OwnerID, testutil.TestOwner)

	// Every delivery channel starts disconnected
	testutil.AssertEqual(t, result.UseSMS, false)
	testutil.AssertEqual(t, result.UseEmail, false)
	testutil.AssertEqual(t, result.UseGroupMe, false)

	testutil.AssertNoError(t, mock.ExpectationsWereMet())
}

func TestAPI_CreateGroup_MissingName(t *testing.T) {
	db, _ := testutil.NewMockDB(t)
	defer db.Close()

	router := newTestRouter(db)
	resp := doRequest(t, router, "POST", "/groups", map[string]interface{}{
		"description": "No name given",
	})

	testutil.AssertStatusCode(t, resp, http.StatusBadRequest)
	detail := parseErrorDetail(t, resp)
	testutil.AssertEqual(t, detail["code"], "VALIDATION_ERROR")
	testutil.AssertContains(t, detail["message"].(string), "name is required")
}

func TestAPI_CreateGroup_EmptyBody(t *testing.T) {
	db, _ := testutil.NewMockDB(t)
	defer db.Close()

	router := newTestRouter(db)
	resp := doRequest(t, router, "POST", "/groups", nil)

	testutil.AssertStatusCode(t, resp, http.StatusBadRequest)
	detail := parseErrorDetail(t, resp)
	testutil.AssertEqual(t, detail["code"], "INVALID_JSON")
}

func TestAPI_GetGroup_NotFound(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	defer db.Close()

	mock.ExpectQuery("FROM groups").
		WithArgs(42, testutil.TestOwner).
		WillReturnError(sql.ErrNoRows)

	router := newTestRouter(db)
	resp := doRequest(t, router, "GET", "/groups/42", nil)

	testutil.AssertStatusCode(t, resp, http.StatusNotFound)
	detail := parseErrorDetail(t, resp)
	testutil.AssertEqual(t, detail["code"], "RESOURCE_NOT_FOUND")
	testutil.AssertContains(t, detail["message"].(string), "group with ID 42")
}

func TestAPI_ArchiveGroup_Success(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	defer db.Close()

	mock.ExpectExec("UPDATE groups").
		WithArgs(true, 5, testutil.TestOwner).
		WillReturnResult(sqlmock.NewResult(0, 1))

	router := newTestRouter(db)
	resp := doRequest(t, router, "DELETE", "/groups/5", nil)

	testutil.AssertStatusCode(t, resp, http.StatusNoContent)
	testutil.AssertNoError(t, mock.ExpectationsWereMet())
}

func TestAPI_ConnectChannel_Success(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	defer db.Close()

	mock.ExpectQuery("FROM groups").
		WithArgs(5, testutil.TestOwner).
		WillReturnRows(groupRows(5, "Soccer Team", true, false, false, false))
	mock.ExpectQuery("UPDATE groups").
		WithArgs("Soccer Team", "", nil, true, false, true, false, 5, testutil.TestOwner).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))

	router := newTestRouter(db)
	resp := doRequest(t, router, "POST", "/groups/5/channels/groupme", nil)

	testutil.AssertStatusCode(t, resp, http.StatusOK)

	var result models.Group
	testutil.ParseJSONResponse(t, resp, &result)
	testutil.AssertEqual(t, result.UseGroupMe, true)
	testutil.AssertEqual(t, result.UseSMS, true)

	testutil.AssertNoError(t, mock.ExpectationsWereMet())
}

func TestAPI_ConnectChannel_AlreadyConnected(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	defer db.Close()

	mock.ExpectQuery("FROM groups").
		WithArgs(5, testutil.TestOwner).
		WillReturnRows(groupRows(5, "Soccer Team", true, false, false, false))

	router := newTestRouter(db)
	resp := doRequest(t, router, "POST", "/groups/5/channels/sms", nil)

	testutil.AssertStatusCode(t, resp, http.StatusConflict)
	detail := parseErrorDetail(t, resp)
	testutil.AssertEqual(t, detail["code"], "CONFLICT")
	testutil.AssertContains(t, detail["message"].(string), "already connected")
}

func TestAPI_ConnectChannel_UnknownChannel(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	defer db.Close()

	router := newTestRouter(db)
	resp := doRequest(t, router, "POST", "/groups/5/channels/carrier-pigeon", nil)

	testutil.AssertStatusCode(t, resp, http.StatusBadRequest)
	detail := parseErrorDetail(t, resp)
	testutil.AssertEqual(t, detail["code"], "VALIDATION_ERROR")
	testutil.AssertContains(t, detail["message"].(string), "invalid channel")

	// The group is never looked up for a channel that does not exist
	testutil.AssertNoError(t, mock.ExpectationsWereMet())
}

func TestAPI_MissingUserHeader(t *testing.T) {
	db, _ := testutil.NewMockDB(t)
	defer db.Close()

	router := newTestRouter(db)
	req := testutil.NewJSONRequest(t, "GET", "/groups", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	testutil.AssertStatusCode(t, resp, http.StatusUnauthorized)
	detail := parseErrorDetail(t, resp)
	testutil.AssertEqual(t, detail["code"], "UNAUTHENTICATED")
}
