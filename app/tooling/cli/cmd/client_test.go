package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ardanlabs/gossipchain/business/web/errs"
	"github.com/spf13/cobra"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Call(t *testing.T) {
	t.Log("Given the need to call the node api.")
	{
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/v1/tx/submit":
				var tx map[string]any
				if err := json.NewDecoder(r.Body).Decode(&tx); err != nil || tx["sender"] != "bill" {
					w.WriteHeader(http.StatusInternalServerError)
					return
				}
				json.NewEncoder(w).Encode(map[string]string{"status": "ok"})

			default:
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(errs.Response{Error: "data validation error", Fields: map[string]string{"amount": "bad"}})
			}
		}))
		defer srv.Close()

		old := url
		url = srv.URL
		defer func() { url = old }()

		var resp struct {
			Status string `json:"status"`
		}
		if err := call(http.MethodPost, "/v1/tx/submit", map[string]string{"sender": "bill"}, &resp); err != nil {
			t.Fatalf("\t%s\tShould be able to post the transaction: %s", failed, err)
		}
		if resp.Status != "ok" {
			t.Fatalf("\t%s\tShould decode the response, got %q.", failed, resp.Status)
		}
		t.Logf("\t%s\tShould be able to post and decode the response.", success)

		err := call(http.MethodGet, "/v1/unknown", nil, nil)
		if err == nil || !strings.Contains(err.Error(), "data validation error") || !strings.Contains(err.Error(), "amount") {
			t.Fatalf("\t%s\tShould surface the error response, got %v.", failed, err)
		}
		t.Logf("\t%s\tShould surface the error response.", success)
	}
}

func Test_PrivateKeyPath(t *testing.T) {
	t.Log("Given the need to locate the private key.")
	{
		oldName, oldPath := keyName, keyPath
		defer func() { keyName, keyPath = oldName, oldPath }()

		keyName, keyPath = "miner2", "keys"
		if got := getPrivateKeyPath(); got != "keys/miner2.ecdsa" {
			t.Fatalf("\t%s\tShould add the key extension, got %q.", failed, got)
		}
		t.Logf("\t%s\tShould add the key extension.", success)
	}
}

func Test_GenerateAddress(t *testing.T) {
	t.Log("Given the need to generate a miner key and print its address.")
	{
		oldName, oldPath := keyName, keyPath
		defer func() { keyName, keyPath = oldName, oldPath }()

		keyName, keyPath = "miner1", t.TempDir()

		var gen bytes.Buffer
		c := &cobra.Command{}
		c.SetOut(&gen)
		generateRun(c, nil)

		var addr bytes.Buffer
		c.SetOut(&addr)
		addressRun(c, nil)

		if gen.String() == "" || gen.String() != addr.String() {
			t.Logf("\t\tgot: %q", addr.String())
			t.Logf("\t\texp: %q", gen.String())
			t.Fatalf("\t%s\tShould print the same address for the saved key.", failed)
		}
		t.Logf("\t%s\tShould print the same address for the saved key.", success)

		if !strings.HasPrefix(addr.String(), "0x") {
			t.Fatalf("\t%s\tShould print a hex address, got %q.", failed, addr.String())
		}
		t.Logf("\t%s\tShould print a hex address.", success)
	}
}
