package handler

import (
	"database/sql"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"groupcast/internal/middleware"
	"groupcast/internal/repository"
	"groupcast/internal/service"
	"groupcast/internal/testutil"
	"groupcast/internal/validation"
)

// newTestRouter wires the API surface against real repositories and services
// backed by db, exactly as the server binary does. The delivery publisher is
// nil: dispatch treats publishing as best-effort, so these tests run without
// a broker.
func newTestRouter(db *sql.DB) *mux.Router {
	groupRepo := repository.NewGroupRepository(db)
	contactRepo := repository.NewContactRepository(db)
	memberRepo := repository.NewMemberRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)

	validator := validation.NewValidator(validation.DefaultPolicy())
	groupSvc := service.NewGroupService(groupRepo)
	contactSvc := service.NewContactService(contactRepo)
	memberSvc := service.NewMemberService(memberRepo, contactRepo, groupRepo, db)
	messageSvc := service.NewMessageService(messageRepo, memberRepo, groupRepo, snapshotRepo, validator, nil, db)
	exportSvc := service.NewExportService()

	groupHandler := NewGroupHandler(groupSvc)
	contactHandler := NewContactHandler(contactSvc)
	memberHandler := NewMemberHandler(memberSvc, exportSvc)
	messageHandler := NewMessageHandler(messageSvc)

	router := mux.NewRouter()
	api := router.NewRoute().Subrouter()
	api.Use(middleware.Requester)

	api.HandleFunc("/groups", groupHandler.Create).Methods("POST")
	api.HandleFunc("/groups", groupHandler.List).Methods("GET")
	api.HandleFunc("/groups/{id}", groupHandler.GetByID).Methods("GET")
	api.HandleFunc("/groups/{id}", groupHandler.Update).Methods("PUT")
	api.HandleFunc("/groups/{id}", groupHandler.Archive).Methods("DELETE")
	api.HandleFunc("/groups/{id}/channels/{channel}", groupHandler.ConnectChannel).Methods("POST")
	api.HandleFunc("/groups/{id}/channels/{channel}", groupHandler.DisconnectChannel).Methods("DELETE")

	api.HandleFunc("/contacts", contactHandler.Create).Methods("POST")
	api.HandleFunc("/contacts", contactHandler.List).Methods("GET")
	api.HandleFunc("/contacts/{id}", contactHandler.GetByID).Methods("GET")
	api.HandleFunc("/contacts/{id}", contactHandler.Update).Methods("PUT")
	api.HandleFunc("/contacts/{id}", contactHandler.Delete).Methods("DELETE")

	api.HandleFunc("/groups/{id}/members/export", memberHandler.Export).Methods("GET")
	api.HandleFunc("/groups/{id}/members", memberHandler.List).Methods("GET")
	api.HandleFunc("/groups/{id}/members", memberHandler.AddBatch).Methods("POST")
	api.HandleFunc("/groups/{id}/members/{contactID}", memberHandler.Upsert).Methods("PUT")
	api.HandleFunc("/groups/{id}/members/{contactID}", memberHandler.Delete).Methods("DELETE")

	api.HandleFunc("/groups/{id}/messages", messageHandler.Create).Methods("POST")
	api.HandleFunc("/groups/{id}/messages", messageHandler.List).Methods("GET")
	api.HandleFunc("/messages/{id}", messageHandler.GetByID).Methods("GET")
	api.HandleFunc("/messages/{id}", messageHandler.Update).Methods("PUT")
	api.HandleFunc("/messages/{id}", messageHandler.Delete).Methods("DELETE")
	api.HandleFunc("/messages/{id}/dispatch", messageHandler.Dispatch).Methods("POST")
	api.HandleFunc("/messages/{id}/recipients", messageHandler.Recipients).Methods("GET")

	return router
}

// doRequest runs an authenticated JSON request through the router
func doRequest(t *testing.T, router *mux.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	req := testutil.NewJSONRequest(t, method, path, body)
	req.Header.Set("X-User-ID", testutil.TestOwner)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

// parseErrorDetail unwraps the error envelope of a failed response
func parseErrorDetail(t *testing.T, resp *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var envelope map[string]interface{}
	testutil.ParseJSONResponse(t, resp, &envelope)

	detail, ok := envelope["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected an error envelope, got %v", envelope)
	}
	return detail
}
