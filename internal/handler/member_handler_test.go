package handler

import (
	"database/sql"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"groupcast/internal/models"
	"groupcast/internal/testutil"
)

// contactRows builds the 8-column result of a contact SELECT
func contactRows(id int, name string, phone, email interface{}) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "owner_id", "name", "phone", "email", "notes", "created_at", "updated_at",
	}).AddRow(id, testutil.TestOwner, name, phone, email, "", time.Now(), time.Now())
}

func TestAPI_UpsertMember_CreatesMembership(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	defer db.Close()

	mock.ExpectQuery("FROM groups").
		WithArgs(1, testutil.TestOwner).
		WillReturnRows(groupRows(1, "Book Club", true, false, false, false))
	mock.ExpectQuery("FROM contacts").
		WithArgs(3, testutil.TestOwner).
		WillReturnRows(contactRows(3, "Alice Mwangi", "+15550100001", nil))
	mock.ExpectQuery("FROM members").
		WithArgs(1, 3, testutil.TestOwner).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("INSERT INTO members").
		WithArgs(1, 3, true, "", testutil.TestOwner, testutil.TestOwner).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(10, time.Now(), time.Now()))

	router := newTestRouter(db)
	resp := doRequest(t, router, "PUT", "/groups/1/members/3", map[string]interface{}{})

	// A membership that did not exist comes back 201
	testutil.AssertStatusCode(t, resp, http.StatusCreated)

	var result models.MemberWithContact
	testutil.ParseJSONResponse(t, resp, &result)
	testutil.AssertEqual(t, result.ID, 10)
	testutil.AssertEqual(t, result.IsRecipient, true)
	testutil.AssertEqual(t, result.Contact.Name, "Alice Mwangi")

	testutil.AssertNoError(t, mock.ExpectationsWereMet())
}

func TestAPI_UpsertMember_UpdatesMembership(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	defer db.Close()

	mock.ExpectQuery("FROM groups").
		WithArgs(1, testutil.TestOwner).
		WillReturnRows(groupRows(1, "Book Club", true, false, false, false))
	mock.ExpectQuery("FROM contacts").
		WithArgs(3, testutil.TestOwner).
		WillReturnRows(contactRows(3, "Alice Mwangi", "+15550100001", nil))
	mock.ExpectQuery("FROM members").
		WithArgs(1, 3, testutil.TestOwner).
		WillReturnRows(rosterRows().AddRow(
			10, 1, 3, true, "",
			testutil.TestOwner, testutil.TestOwner, time.Now(), time.Now(),
			3, testutil.TestOwner, "Alice Mwangi", "+15550100001", nil, "", time.Now(), time.Now(),
		))
	mock.ExpectQuery("UPDATE members").
		WithArgs(false, "paused for the season", testutil.TestOwner, 10).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))

	router := newTestRouter(db)
	resp := doRequest(t, router, "PUT", "/groups/1/members/3", map[string]interface{}{
		"is_recipient": false,
		"notes":        "paused for the season",
	})

	// An existing membership comes back 200
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	var result models.MemberWithContact
	testutil.ParseJSONResponse(t, resp, &result)
	testutil.AssertEqual(t, result.IsRecipient, false)
	testutil.AssertEqual(t, result.Notes, "paused for the season")

	testutil.AssertNoError(t, mock.ExpectationsWereMet())
}

func TestAPI_RemoveMember_NotFound(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	defer db.Close()

	mock.ExpectExec("DELETE FROM members").
		WithArgs(1, 99, testutil.TestOwner).
		WillReturnResult(sqlmock.NewResult(0, 0))

	router := newTestRouter(db)
	resp := doRequest(t, router, "DELETE", "/groups/1/members/99", nil)

	testutil.AssertStatusCode(t, resp, http.StatusNotFound)
	detail := parseErrorDetail(t, resp)
	testutil.AssertEqual(t, detail["code"], "RESOURCE_NOT_FOUND")
}

func TestAPI_ExportRoster_Success(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	defer db.Close()

	mock.ExpectQuery("FROM groups").
		WithArgs(1, testutil.TestOwner).
		WillReturnRows(groupRows(1, "Book Club", true, false, false, false))
	mock.ExpectQuery("FROM members").
		WithArgs(1).
		WillReturnRows(rosterRows().AddRow(
			10, 1, 3, true, "",
			testutil.TestOwner, testutil.TestOwner, time.Now(), time.Now(),
			3, testutil.TestOwner, "Alice Mwangi", "+15550100001", nil, "", time.Now(), time.Now(),
		))

	router := newTestRouter(db)
	resp := doRequest(t, router, "GET", "/groups/1/members/export", nil)

	testutil.AssertStatusCode(t, resp, http.StatusOK)
	testutil.AssertEqual(t, resp.Header().Get("Content-Type"),
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	testutil.AssertContains(t, resp.Header().Get("Content-Disposition"), "group-1-members.xlsx")
	if resp.Body.Len() == 0 {
		t.Fatal("Expected workbook bytes in the response body")
	}

	testutil.AssertNoError(t, mock.ExpectationsWereMet())
}

func TestAPI_ExportRoute_NotSwallowedByContactID(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	defer db.Close()

	// "export" must reach the export handler, not parse as a contact ID
	mock.ExpectQuery("FROM groups").
		WithArgs(1, testutil.TestOwner).
		WillReturnRows(groupRows(1, "Book Club", true, false, false, false))
	mock.ExpectQuery("FROM members").
		WithArgs(1).
		WillReturnRows(rosterRows())

	router := newTestRouter(db)
	resp := doRequest(t, router, "GET", "/groups/1/members/export", nil)

	testutil.AssertStatusCode(t, resp, http.StatusOK)
	if !strings.Contains(resp.Header().Get("Content-Type"), "spreadsheet") {
		t.Fatalf("Expected a workbook response, got %s", resp.Header().Get("Content-Type"))
	}
}
