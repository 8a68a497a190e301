package handlers

import (
	"net/http"
	"testing"

	"loyalty-backend/docstore"
	"loyalty-backend/models"
	"loyalty-backend/utils"
)

func TestRegisterLinkCreatesCustomer(t *testing.T) {
	store := freshStore()
	router := setupRouter(store)
	token := seedTestUser(t, store, "u1", models.RoleCustomer, "27832091122", "")

	body := map[string]string{"phone": "+27 83 209 1122", "email": "ann@example.com", "name": "Ann van Wyk"}
	w := serve(router, authRequest("POST", "/api/customers/register-link", body, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := parseResponse(w)
	customerID, _ := resp["customer_id"].(string)
	if customerID == "" || resp["linked"] != true {
		t.Fatalf("expected a linked customer, got %v", resp)
	}
	if got := docField(t, store, models.CollectionCustomers, customerID, models.FieldPhoneNormalized); got != "27832091122" {
		t.Errorf("expected phone_normalized 27832091122, got %q", got)
	}
	if got := docField(t, store, models.CollectionUsers, "u1", models.FieldLinkedCustomerID); got != customerID {
		t.Errorf("expected user linked to %s, got %q", customerID, got)
	}
}

func TestRegisterLinkAcceptsInvitations(t *testing.T) {
	store := freshStore()
	router := setupRouter(store)
	token := seedTestUser(t, store, "u1", models.RoleCustomer, "0832091122", "")
	seedCustomer(t, store, "c1", "0832091122", "")
	seedInvitation(t, store, "inv1", "b1", "0832091122", models.InvitationPending)
	seedInvitation(t, store, "inv2", "b2", "0832091122", models.InvitationPending)

	body := map[string]string{"phone": "083 209 1122", "name": "Thandi M"}
	w := serve(router, authRequest("POST", "/api/customers/register-link", body, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := parseResponse(w)
	if resp["customer_id"] != "c1" {
		t.Fatalf("expected existing customer c1, got %v", resp["customer_id"])
	}
	accepted, _ := resp["accepted_invitations"].([]interface{})
	if len(accepted) != 2 {
		t.Fatalf("expected 2 accepted invitations, got %v", resp["accepted_invitations"])
	}
	// Email falls back to the token's email.
	if got := docField(t, store, models.CollectionCustomers, "c1", models.FieldEmail); got != "u1@test.com" {
		t.Errorf("expected email from token, got %q", got)
	}
}

func TestRegisterLinkWithoutPhone(t *testing.T) {
	store := freshStore()
	router := setupRouter(store)
	token := seedTestUser(t, store, "u1", models.RoleCustomer, "", "")

	w := serve(router, authRequest("POST", "/api/customers/register-link", map[string]string{"name": "Ann"}, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := parseResponse(w)
	if resp["linked"] != false || resp["customer_id"] != "" {
		t.Errorf("expected no link without a phone, got %v", resp)
	}
	if accepted, ok := resp["accepted_invitations"].([]interface{}); !ok || len(accepted) != 0 {
		t.Errorf("expected an empty invitation list, got %v", resp["accepted_invitations"])
	}
}

func TestRegisterLinkConflictStillSucceeds(t *testing.T) {
	store := freshStore()
	router := setupRouter(store)
	seedTestUser(t, store, "u1", models.RoleCustomer, "", "")
	token := seedTestUser(t, store, "u2", models.RoleCustomer, "0832091122", "")
	seedCustomer(t, store, "c1", "0832091122", "u1")

	w := serve(router, authRequest("POST", "/api/customers/register-link", map[string]string{"phone": "0832091122"}, token))
	if w.Code != http.StatusOK {
		t.Fatalf("linking failure must not fail the request, got %d", w.Code)
	}
	if resp := parseResponse(w); resp["linked"] != false {
		t.Errorf("expected linked=false, got %v", resp)
	}
	if got := docField(t, store, models.CollectionCustomers, "c1", models.FieldUserID); got != "u1" {
		t.Errorf("expected c1 to stay with u1, got %q", got)
	}
}

func TestRegisterLinkRejectsPhoneOfAnotherAccount(t *testing.T) {
	store := freshStore()
	router := setupRouter(store)
	noPhone := seedTestUser(t, store, "u1", models.RoleCustomer, "", "")
	otherPhone := seedTestUser(t, store, "u2", models.RoleCustomer, "0711111111", "")
	seedCustomer(t, store, "cV", "0832091122", "")
	seedInvitation(t, store, "invV", "b1", "0832091122", models.InvitationPending)

	for _, token := range []string{noPhone, otherPhone} {
		w := serve(router, authRequest("POST", "/api/customers/register-link", map[string]string{"phone": "0832091122"}, token))
		if w.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d: %s", w.Code, w.Body.String())
		}
	}

	if got := docField(t, store, models.CollectionCustomers, "cV", models.FieldUserID); got != "" {
		t.Errorf("expected cV unclaimed, got %q", got)
	}
	if got := docField(t, store, models.CollectionCustomers, "cV", models.FieldEmail); got != "thandi@example.com" {
		t.Errorf("expected cV email untouched, got %q", got)
	}
	if got := docField(t, store, models.CollectionInvitations, "invV", models.FieldStatus); got != models.InvitationPending {
		t.Errorf("expected invV pending, got %q", got)
	}
}

func TestRegisterLinkAlreadyLinkedElsewhere(t *testing.T) {
	store := freshStore()
	router := setupRouter(store)
	token := seedTestUser(t, store, "u1", models.RoleCustomer, "0832091122", "")
	seedCustomer(t, store, "cA", "0711111111", "u1")
	seedDoc(t, store, models.CollectionUsers, "u1", docstore.Fields{
		"role":                       models.RoleCustomer,
		"email":                      "u1@test.com",
		"phoneNumber":                "0832091122",
		models.FieldLinkedCustomerID: "cA",
	})
	seedCustomer(t, store, "cV", "0832091122", "")
	seedInvitation(t, store, "invV", "b1", "0832091122", models.InvitationPending)

	w := serve(router, authRequest("POST", "/api/customers/register-link", map[string]string{"phone": "0832091122"}, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := parseResponse(w)
	if resp["linked"] != false || resp["customer_id"] != "" {
		t.Errorf("expected no link, got %v", resp)
	}

	if got := docField(t, store, models.CollectionCustomers, "cV", models.FieldUserID); got != "" {
		t.Errorf("expected cV unclaimed, got %q", got)
	}
	if got := docField(t, store, models.CollectionInvitations, "invV", models.FieldStatus); got != models.InvitationPending {
		t.Errorf("expected invV pending, got %q", got)
	}
	if got := docField(t, store, models.CollectionUsers, "u1", models.FieldLinkedCustomerID); got != "cA" {
		t.Errorf("expected u1 to stay linked to cA, got %q", got)
	}
}

func TestRegisterLinkKeepsEmailWithoutOne(t *testing.T) {
	store := freshStore()
	router := setupRouter(store)
	seedDoc(t, store, models.CollectionUsers, "u1", docstore.Fields{
		"role":        models.RoleCustomer,
		"phoneNumber": "0832091122",
	})
	token, err := utils.GenerateToken("u1", "", models.RoleCustomer, "")
	if err != nil {
		t.Fatal(err)
	}
	seedCustomer(t, store, "c1", "0832091122", "")

	w := serve(router, authRequest("POST", "/api/customers/register-link", map[string]string{"phone": "0832091122"}, token))
	if w.Code != http.StatusOK || parseResponse(w)["linked"] != true {
		t.Fatalf("expected linked=true, got %d: %s", w.Code, w.Body.String())
	}
	if got := docField(t, store, models.CollectionCustomers, "c1", models.FieldEmail); got != "thandi@example.com" {
		t.Errorf("expected the stored email to survive a registration without one, got %q", got)
	}
}

func TestRegisterLinkInvalidPhone(t *testing.T) {
	store := freshStore()
	router := setupRouter(store)
	token := seedTestUser(t, store, "u1", models.RoleCustomer, "", "")

	w := serve(router, authRequest("POST", "/api/customers/register-link", map[string]string{"phone": "123"}, token))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRegisterLinkRequiresAuth(t *testing.T) {
	router := setupRouter(freshStore())
	w := serve(router, jsonRequest("POST", "/api/customers/register-link", map[string]string{"phone": "0832091122"}))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestLinkCustomer(t *testing.T) {
	store := freshStore()
	router := setupRouter(store)
	token1 := seedTestUser(t, store, "u1", models.RoleCustomer, "083 209 1122", "")
	token2 := seedTestUser(t, store, "u2", models.RoleCustomer, "0832091122", "")
	stranger := seedTestUser(t, store, "u3", models.RoleCustomer, "0719990000", "")
	seedCustomer(t, store, "c1", "0832091122", "")

	w := serve(router, authRequest("POST", "/api/customers/c1/link", nil, stranger))
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a caller without the customer's phone, got %d", w.Code)
	}
	if got := docField(t, store, models.CollectionCustomers, "c1", models.FieldUserID); got != "" {
		t.Fatalf("expected c1 unclaimed, got %q", got)
	}

	w = serve(router, authRequest("POST", "/api/customers/c1/link", nil, token1))
	if w.Code != http.StatusOK || parseResponse(w)["linked"] != true {
		t.Fatalf("expected linked=true, got %d: %s", w.Code, w.Body.String())
	}

	w = serve(router, authRequest("POST", "/api/customers/c1/link", nil, token2))
	if w.Code != http.StatusOK || parseResponse(w)["linked"] != false {
		t.Fatalf("expected linked=false for a second user, got %d: %s", w.Code, w.Body.String())
	}

	w = serve(router, authRequest("POST", "/api/customers/missing/link", nil, token2))
	if parseResponse(w)["linked"] != false {
		t.Errorf("expected linked=false for a missing customer, got %s", w.Body.String())
	}
}

func TestLookupCustomer(t *testing.T) {
	store := freshStore()
	router := setupRouter(store)
	token := seedTestUser(t, store, "staff1", models.RoleStaff, "", "b1")
	seedCustomer(t, store, "c1", "27832091122", "")

	w := serve(router, authRequest("GET", "/api/customers/lookup?phone=%2B27+83+209+1122", nil, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := parseResponse(w)
	if resp["id"] != "c1" || resp["display_phone"] != "+27 83 209 1122" || resp["linked"] != false {
		t.Errorf("unexpected customer response %v", resp)
	}

	w = serve(router, authRequest("GET", "/api/customers/lookup?phone=0719990000", nil, token))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown phone, got %d", w.Code)
	}

	w = serve(router, authRequest("GET", "/api/customers/lookup", nil, token))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without phone, got %d", w.Code)
	}
}

func TestLookupCustomerForbiddenForCustomers(t *testing.T) {
	store := freshStore()
	router := setupRouter(store)
	token := seedTestUser(t, store, "u1", models.RoleCustomer, "", "")

	w := serve(router, authRequest("GET", "/api/customers/lookup?phone=0832091122", nil, token))
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestGetRelationships(t *testing.T) {
	store := freshStore()
	router := setupRouter(store)
	token := seedTestUser(t, store, "u1", models.RoleCustomer, "", "")
	other := seedTestUser(t, store, "u2", models.RoleCustomer, "", "")
	admin := seedTestUser(t, store, "admin1", models.RoleAdmin, "", "")
	seedCustomer(t, store, "c1", "0832091122", "u1")
	seedInvitation(t, store, "inv1", "b1", "0832091122", models.InvitationPending)

	w := serve(router, authRequest("POST", "/api/invitations/accept", map[string]string{"customer_id": "c1", "phone": "0832091122"}, token))
	if w.Code != http.StatusOK {
		t.Fatalf("accept: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = serve(router, authRequest("GET", "/api/customers/c1/relationships", nil, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	rels := parseResponseArray(w)
	if len(rels) != 1 {
		t.Fatalf("expected 1 relationship, got %d", len(rels))
	}
	rel := rels[0].(map[string]interface{})
	if rel["business_id"] != "b1" || rel["relationship_type"] != models.RelationshipInvited || rel["status"] != models.RelationshipActive {
		t.Errorf("unexpected relationship %v", rel)
	}

	if w := serve(router, authRequest("GET", "/api/customers/c1/relationships", nil, other)); w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for another user, got %d", w.Code)
	}
	if w := serve(router, authRequest("GET", "/api/customers/c1/relationships", nil, admin)); w.Code != http.StatusOK {
		t.Errorf("expected 200 for admin, got %d", w.Code)
	}
	if w := serve(router, authRequest("GET", "/api/customers/nope/relationships", nil, admin)); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing customer, got %d", w.Code)
	}
}
