package lookup_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"roaming-recon/internal/deal"
	"roaming-recon/internal/lookup"
)

const contractDocument = `{
	"deal_type": "AA12",
	"contract_period": {
		"start_period": "2025-01-01T00:00:00Z",
		"end_period": "2026-01-01T00:00:00Z"
	},
	"contract_template_uuid": "uploaded_contract",
	"client_uuid": "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
	"partner_uuid": "6ba7b811-9dad-11d1-80b4-00c04fd430c8",
	"laterality": "unilateral",
	"inbound": {
		"currency_code": "EUR",
		"tax": false,
		"commitments": [],
		"iot_rates": [
			{
				"model_type": "structured",
				"destination": "all",
				"serving_party": ["GBRCN"],
				"served_party": ["FRAOR"],
				"service": "data",
				"back_to_first": false,
				"tiers": [
					{"rate": "0.5", "rate_unit": "1", "rate_type": "MB", "charge_unit": "1", "charge_type": "KB"}
				]
			}
		],
		"tap_rates": []
	},
	"addendums": []
}`

const contractUUID = "a47ac10b-58cc-4372-a567-0e02b2c3d479"

func TestClient_Query(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"path":       r.URL.Path,
			"hpmn":       r.URL.Query().Get("hpmn"),
			"vpmn":       r.URL.Query().Get("vpmn"),
			"query_date": r.URL.Query().Get("query_date"),
		}
		fmt.Fprintf(w, `[["%s", %s]]`, contractUUID, contractDocument)
	}))
	defer srv.Close()

	c := lookup.NewClient(srv.URL, nil, nil)
	res, err := c.Query(context.Background(), "GBRCN", "FRAOR", time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotQuery["path"] != "/internal/contracts/query" {
		t.Errorf("unexpected path %q", gotQuery["path"])
	}
	if gotQuery["hpmn"] != "GBRCN" || gotQuery["vpmn"] != "FRAOR" {
		t.Errorf("unexpected pmn params: %+v", gotQuery)
	}
	if gotQuery["query_date"] != "2025-05-01" {
		t.Errorf("expected query_date 2025-05-01, got %q", gotQuery["query_date"])
	}

	if res.ContractUUID.String() != contractUUID {
		t.Errorf("expected contract uuid %s, got %s", contractUUID, res.ContractUUID)
	}
	if res.Deal == nil || res.Deal.Inbound == nil {
		t.Fatalf("expected a decoded deal with an inbound direction")
	}
	if res.Deal.Inbound.IoTRates[0].Service != deal.ServiceData {
		t.Errorf("deal decoded wrong: %+v", res.Deal.Inbound.IoTRates[0])
	}
}

func TestClient_Query_NoContract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	c := lookup.NewClient(srv.URL, nil, nil)
	_, err := c.Query(context.Background(), "GBRCN", "FRAOR", time.Now())
	if !errors.Is(err, lookup.ErrNoContract) {
		t.Errorf("expected ErrNoContract, got %v", err)
	}
}

func TestClient_Query_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"not": "an array"}`)
			},
		},
		{
			name: "short row",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprintf(w, `[["%s"]]`, contractUUID)
			},
		},
		{
			name: "malformed uuid",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprintf(w, `[["not-a-uuid", %s]]`, contractDocument)
			},
		},
		{
			name: "invalid deal document",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprintf(w, `[["%s", {"deal_type": "AA14"}]]`, contractUUID)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := lookup.NewClient(srv.URL, nil, nil)
			if _, err := c.Query(context.Background(), "GBRCN", "FRAOR", time.Now()); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
